package api

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Assignment is an assignment record as served by /assignments/.
type Assignment struct {
	ID          int64     `json:"id,omitempty"`
	Course      int64     `json:"course"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date,omitempty"`
}

// Submission is a student's answer to an assignment. Grade is a pointer so an
// ungraded submission is distinguishable from a zero grade.
type Submission struct {
	ID          int64     `json:"id,omitempty"`
	Assignment  int64     `json:"assignment"`
	Student     int64     `json:"student,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	Content     string    `json:"content,omitempty"`
	Grade       *float64  `json:"grade,omitempty"`
	Feedback    string    `json:"feedback,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// ListAssignments returns assignments, optionally filtered to one course
// (courseID 0 lists everything the caller may see).
func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	path := "/assignments/"
	if courseID > 0 {
		path = fmt.Sprintf("/assignments/?course=%d", courseID)
	}
	resp, err := c.gw.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	var assignments []Assignment
	if err := resp.Decode(&assignments); err != nil {
		return nil, errors.Wrap(err, "[Client.ListAssignments] decode assignments")
	}
	return assignments, nil
}

// GetAssignment returns a single assignment by ID.
func (c *Client) GetAssignment(ctx context.Context, id int64) (*Assignment, error) {
	resp, err := c.gw.Get(ctx, fmt.Sprintf("/assignments/%d/", id))
	if err != nil {
		return nil, err
	}

	var assignment Assignment
	if err := resp.Decode(&assignment); err != nil {
		return nil, errors.Wrap(err, "[Client.GetAssignment] decode assignment")
	}
	return &assignment, nil
}

// CreateAssignment creates an assignment on a course.
func (c *Client) CreateAssignment(ctx context.Context, assignment Assignment) (*Assignment, error) {
	resp, err := c.gw.Post(ctx, "/assignments/", assignment)
	if err != nil {
		return nil, err
	}

	var created Assignment
	if err := resp.Decode(&created); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateAssignment] decode assignment")
	}
	return &created, nil
}

// UpdateAssignment replaces an assignment record.
func (c *Client) UpdateAssignment(ctx context.Context, id int64, assignment Assignment) (*Assignment, error) {
	resp, err := c.gw.Put(ctx, fmt.Sprintf("/assignments/%d/", id), assignment)
	if err != nil {
		return nil, err
	}

	var updated Assignment
	if err := resp.Decode(&updated); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateAssignment] decode assignment")
	}
	return &updated, nil
}

// DeleteAssignment removes an assignment.
func (c *Client) DeleteAssignment(ctx context.Context, id int64) error {
	_, err := c.gw.Delete(ctx, fmt.Sprintf("/assignments/%d/", id))
	return err
}

// ListSubmissions returns submissions, optionally filtered to one assignment.
// The server scopes the result to the caller's role.
func (c *Client) ListSubmissions(ctx context.Context, assignmentID int64) ([]Submission, error) {
	path := "/assignments/submissions/"
	if assignmentID > 0 {
		path = fmt.Sprintf("/assignments/submissions/?assignment=%d", assignmentID)
	}
	resp, err := c.gw.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	var submissions []Submission
	if err := resp.Decode(&submissions); err != nil {
		return nil, errors.Wrap(err, "[Client.ListSubmissions] decode submissions")
	}
	return submissions, nil
}

// Submit creates a submission for an assignment.
func (c *Client) Submit(ctx context.Context, assignmentID int64, content string) (*Submission, error) {
	resp, err := c.gw.Post(ctx, "/assignments/submissions/", Submission{
		Assignment: assignmentID,
		Content:    content,
	})
	if err != nil {
		return nil, err
	}

	var submission Submission
	if err := resp.Decode(&submission); err != nil {
		return nil, errors.Wrap(err, "[Client.Submit] decode submission")
	}
	return &submission, nil
}

// GradeSubmission records a grade and feedback on a submission (teacher or
// admin only, enforced server-side).
func (c *Client) GradeSubmission(ctx context.Context, submissionID int64, grade float64, feedback string) (*Submission, error) {
	resp, err := c.gw.Patch(ctx, fmt.Sprintf("/assignments/submissions/%d/", submissionID), map[string]interface{}{
		"grade":    grade,
		"feedback": feedback,
	})
	if err != nil {
		return nil, err
	}

	var submission Submission
	if err := resp.Decode(&submission); err != nil {
		return nil, errors.Wrap(err, "[Client.GradeSubmission] decode submission")
	}
	return &submission, nil
}
