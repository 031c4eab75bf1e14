package models

import "github.com/lib/pq"

// Course is a curriculum subject that can be scheduled.
type Course struct {
	ID            int           `db:"id" json:"id"`
	Code          string        `db:"code" json:"code"`
	Name          string        `db:"name" json:"name"`
	Semester      int           `db:"semester" json:"semester"`
	Prerequisites pq.Int64Array `db:"prerequisites" json:"prerequisites"`
}

// Professor teaches one or more courses.
type Professor struct {
	ID     string  `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	Rating float64 `db:"rating" json:"rating"`
}

// CourseProfessor links a course with a professor who teaches it.
type CourseProfessor struct {
	CourseID    int    `db:"course_id" json:"course_id"`
	ProfessorID string `db:"professor_id" json:"professor_id"`
}
