// Package notify emits change signals consumed by external collaborators
// (UI cache revalidation, mail). The core only says what changed, it never
// performs the downstream work itself.
package notify

import "github.com/sirupsen/logrus"

type Notifier interface {
	EnrollmentChanged(userID, courseID, status string)
	ProgressChanged(userID, lessonID string)
}

// Log is the default Notifier, a structured log line per change signal.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) EnrollmentChanged(userID, courseID, status string) {
	l.Logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"course_id": courseID,
		"status":    status,
	}).Info("enrollment changed")
}

func (l Log) ProgressChanged(userID, lessonID string) {
	l.Logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"lesson_id": lessonID,
	}).Info("progress changed")
}
