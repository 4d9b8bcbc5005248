package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanOutcome records what a verification scan did.
type ScanOutcome string

const (
	ScanMarked        ScanOutcome = "marked"
	ScanAlreadyMarked ScanOutcome = "already_marked"
	ScanNotFound      ScanOutcome = "not_found"
)

// Scan is one attendance verification attempt at a checkpoint.
type Scan struct {
	ID             uuid.UUID   `json:"id"`
	Partition      string      `json:"partition"`
	AttendanceHash string      `json:"attendanceHash"`
	Outcome        ScanOutcome `json:"outcome"`
	ScannerIP      string      `json:"scannerIp"`
	ScannedAt      time.Time   `json:"scannedAt"`
}
