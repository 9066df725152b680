package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

// ClassroomService lists the user's courses, assignments and note materials
// through the Classroom API using the user's own OAuth tokens.
type ClassroomService interface {
	ListCourses(ctx context.Context, userID uuid.UUID) ([]types.ClassroomCourse, error)
	ListCourseWork(ctx context.Context, userID uuid.UUID, courseID string) ([]types.ClassroomCourseWork, error)
	GetCourseWork(ctx context.Context, userID uuid.UUID, courseID, courseWorkID string) (*types.ClassroomCourseWork, error)
	ListCourseWorkMaterials(ctx context.Context, userID uuid.UUID, courseID string) ([]types.ClassroomCourseWorkMaterial, error)
	GetCourseWorkMaterial(ctx context.Context, userID uuid.UUID, courseID, materialID string) (*types.ClassroomCourseWorkMaterial, error)
}

type classroomService struct {
	log        *logger.Logger
	googleAuth GoogleAuthService
}

func NewClassroomService(log *logger.Logger, googleAuth GoogleAuthService) ClassroomService {
	return &classroomService{
		log:        log.With("service", "ClassroomService"),
		googleAuth: googleAuth,
	}
}

func (cs *classroomService) newClient(ctx context.Context, userID uuid.UUID) (*classroom.Service, error) {
	ts, err := cs.googleAuth.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	svc, err := classroom.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("Failed to build classroom client: %w", err)
	}
	return svc, nil
}

func (cs *classroomService) ListCourses(ctx context.Context, userID uuid.UUID) ([]types.ClassroomCourse, error) {
	svc, err := cs.newClient(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []types.ClassroomCourse
	pageToken := ""
	for {
		call := svc.Courses.List().PageSize(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("Failed to list courses: %w", err)
		}
		for _, c := range resp.Courses {
			if c == nil {
				continue
			}
			out = append(out, types.ClassroomCourse{
				ID:            c.Id,
				Name:          c.Name,
				Section:       c.Section,
				Room:          c.Room,
				State:         c.CourseState,
				AlternateLink: c.AlternateLink,
			})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

func (cs *classroomService) ListCourseWork(ctx context.Context, userID uuid.UUID, courseID string) ([]types.ClassroomCourseWork, error) {
	if courseID == "" {
		return nil, fmt.Errorf("missing course id")
	}
	svc, err := cs.newClient(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []types.ClassroomCourseWork
	pageToken := ""
	for {
		call := svc.Courses.CourseWork.List(courseID).PageSize(50).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("Failed to list course work: %w", err)
		}
		for _, cw := range resp.CourseWork {
			if cw == nil || cw.WorkType != "ASSIGNMENT" {
				continue
			}
			out = append(out, mapCourseWork(cw))
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

func (cs *classroomService) GetCourseWork(ctx context.Context, userID uuid.UUID, courseID, courseWorkID string) (*types.ClassroomCourseWork, error) {
	if courseID == "" || courseWorkID == "" {
		return nil, fmt.Errorf("missing course or course work id")
	}
	svc, err := cs.newClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	cw, err := svc.Courses.CourseWork.Get(courseID, courseWorkID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Failed to get course work: %w", err)
	}
	mapped := mapCourseWork(cw)
	return &mapped, nil
}

func (cs *classroomService) ListCourseWorkMaterials(ctx context.Context, userID uuid.UUID, courseID string) ([]types.ClassroomCourseWorkMaterial, error) {
	if courseID == "" {
		return nil, fmt.Errorf("missing course id")
	}
	svc, err := cs.newClient(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []types.ClassroomCourseWorkMaterial
	pageToken := ""
	for {
		call := svc.Courses.CourseWorkMaterials.List(courseID).PageSize(50).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("Failed to list course work materials: %w", err)
		}
		for _, m := range resp.CourseWorkMaterial {
			if m == nil {
				continue
			}
			out = append(out, types.ClassroomCourseWorkMaterial{
				ID:            m.Id,
				CourseID:      courseID,
				Title:         m.Title,
				Description:   m.Description,
				AlternateLink: m.AlternateLink,
				Materials:     mapMaterials(m.Materials),
			})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

func (cs *classroomService) GetCourseWorkMaterial(ctx context.Context, userID uuid.UUID, courseID, materialID string) (*types.ClassroomCourseWorkMaterial, error) {
	if courseID == "" || materialID == "" {
		return nil, fmt.Errorf("missing course or material id")
	}
	svc, err := cs.newClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	m, err := svc.Courses.CourseWorkMaterials.Get(courseID, materialID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Failed to get course work material: %w", err)
	}
	return &types.ClassroomCourseWorkMaterial{
		ID:            m.Id,
		CourseID:      courseID,
		Title:         m.Title,
		Description:   m.Description,
		AlternateLink: m.AlternateLink,
		Materials:     mapMaterials(m.Materials),
	}, nil
}

func mapCourseWork(cw *classroom.CourseWork) types.ClassroomCourseWork {
	out := types.ClassroomCourseWork{
		ID:            cw.Id,
		CourseID:      cw.CourseId,
		Title:         cw.Title,
		Description:   cw.Description,
		WorkType:      cw.WorkType,
		AlternateLink: cw.AlternateLink,
		Materials:     mapMaterials(cw.Materials),
	}
	if cw.DueDate != nil {
		out.DueDate = fmt.Sprintf("%04d-%02d-%02d", cw.DueDate.Year, cw.DueDate.Month, cw.DueDate.Day)
	}
	return out
}

func mapMaterials(materials []*classroom.Material) []types.MaterialRef {
	var out []types.MaterialRef
	for _, m := range materials {
		if m == nil {
			continue
		}
		switch {
		case m.DriveFile != nil && m.DriveFile.DriveFile != nil:
			out = append(out, types.MaterialRef{
				DriveFileID: m.DriveFile.DriveFile.Id,
				Title:       m.DriveFile.DriveFile.Title,
				Link:        m.DriveFile.DriveFile.AlternateLink,
			})
		case m.Link != nil:
			out = append(out, types.MaterialRef{
				Title: m.Link.Title,
				Link:  m.Link.Url,
			})
		case m.YoutubeVideo != nil:
			out = append(out, types.MaterialRef{
				Title: m.YoutubeVideo.Title,
				Link:  m.YoutubeVideo.AlternateLink,
			})
		case m.Form != nil:
			out = append(out, types.MaterialRef{
				Title: m.Form.Title,
				Link:  m.Form.FormUrl,
			})
		}
	}
	return out
}
