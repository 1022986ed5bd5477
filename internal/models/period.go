package models

import (
	"fmt"
	"time"
)

// PeriodKind distinguishes the live collection from archive partitions.
type PeriodKind string

const (
	PeriodActive  PeriodKind = "active"
	PeriodArchive PeriodKind = "archive"
)

// Period identifies the physical collection a query or write targets.
type Period struct {
	Database   string     `json:"database"`
	Collection string     `json:"collection"`
	Kind       PeriodKind `json:"kind"`
}

// Quarter is a calendar quarter.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// Quarters lists the calendar quarters in order.
var Quarters = []Quarter{Q1, Q2, Q3, Q4}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d", int(q))
}

// Valid reports whether q is one of Q1..Q4.
func (q Quarter) Valid() bool {
	return q >= Q1 && q <= Q4
}

// PartitionKey is the (year, quarter) pair that selects an archive partition.
type PartitionKey struct {
	Year    int
	Quarter Quarter
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%04d_%s", k.Year, k.Quarter)
}

// ArchivePeriod describes one expected archive partition.
type ArchivePeriod struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Label      string `json:"label"`
}

// CurrentWindow describes the live retention window.
type CurrentWindow struct {
	Database   string    `json:"database"`
	Collection string    `json:"collection"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}
