package models

import "fmt"

// Quarter is one of the four grading periods of a school year.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

func (q Quarter) Valid() bool { return q >= Q1 && q <= Q4 }

func (q Quarter) String() string { return fmt.Sprintf("Q%d", int(q)) }

func AllQuarters() []Quarter { return []Quarter{Q1, Q2, Q3, Q4} }
