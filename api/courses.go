package api

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Course is a course record as served by /courses/.
type Course struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Teacher     int64     `json:"teacher,omitempty"`
	TeacherName string    `json:"teacher_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID          int64     `json:"id,omitempty"`
	Course      int64     `json:"course"`
	CourseTitle string    `json:"course_title,omitempty"`
	Student     int64     `json:"student,omitempty"`
	EnrolledAt  time.Time `json:"enrolled_at,omitempty"`
}

// ListCourses returns all visible courses.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	resp, err := c.gw.Get(ctx, "/courses/")
	if err != nil {
		return nil, err
	}

	var courses []Course
	if err := resp.Decode(&courses); err != nil {
		return nil, errors.Wrap(err, "[Client.ListCourses] decode courses")
	}
	return courses, nil
}

// GetCourse returns a single course by ID.
func (c *Client) GetCourse(ctx context.Context, id int64) (*Course, error) {
	resp, err := c.gw.Get(ctx, fmt.Sprintf("/courses/%d/", id))
	if err != nil {
		return nil, err
	}

	var course Course
	if err := resp.Decode(&course); err != nil {
		return nil, errors.Wrap(err, "[Client.GetCourse] decode course")
	}
	return &course, nil
}

// CreateCourse creates a new course (teacher or admin only; the server
// enforces the role and the gateway surfaces a Forbidden error otherwise).
func (c *Client) CreateCourse(ctx context.Context, course Course) (*Course, error) {
	resp, err := c.gw.Post(ctx, "/courses/", course)
	if err != nil {
		return nil, err
	}

	var created Course
	if err := resp.Decode(&created); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateCourse] decode course")
	}
	return &created, nil
}

// UpdateCourse replaces a course record.
func (c *Client) UpdateCourse(ctx context.Context, id int64, course Course) (*Course, error) {
	resp, err := c.gw.Put(ctx, fmt.Sprintf("/courses/%d/", id), course)
	if err != nil {
		return nil, err
	}

	var updated Course
	if err := resp.Decode(&updated); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateCourse] decode course")
	}
	return &updated, nil
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, id int64) error {
	_, err := c.gw.Delete(ctx, fmt.Sprintf("/courses/%d/", id))
	return err
}

// Enroll enrols the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID int64) (*Enrollment, error) {
	resp, err := c.gw.Post(ctx, "/courses/enrollments/", map[string]int64{"course": courseID})
	if err != nil {
		return nil, err
	}

	var enrollment Enrollment
	if err := resp.Decode(&enrollment); err != nil {
		return nil, errors.Wrap(err, "[Client.Enroll] decode enrollment")
	}
	return &enrollment, nil
}

// MyEnrollments returns the current user's enrollments.
func (c *Client) MyEnrollments(ctx context.Context) ([]Enrollment, error) {
	resp, err := c.gw.Get(ctx, "/courses/enrollments/my_enrollments/")
	if err != nil {
		return nil, err
	}

	var enrollments []Enrollment
	if err := resp.Decode(&enrollments); err != nil {
		return nil, errors.Wrap(err, "[Client.MyEnrollments] decode enrollments")
	}
	return enrollments, nil
}
