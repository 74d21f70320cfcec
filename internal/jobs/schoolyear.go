package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
)

// Broadcaster delivers one notification to every user of a role.
type Broadcaster interface {
	Broadcast(ctx context.Context, role models.Role, n models.Notification) (int, error)
}

// SchoolYearNotifier сообщает админам о начале учебного года 1 сентября.
// В рамках жизни процесса уведомление уходит один раз за год.
type SchoolYearNotifier struct {
	out  Broadcaster
	loc  *time.Location
	now  func() time.Time
	mu   sync.Mutex
	last int
}

func NewSchoolYearNotifier(out Broadcaster, loc *time.Location) *SchoolYearNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &SchoolYearNotifier{out: out, loc: loc, now: time.Now}
}

// Run is a Job; outside September 1st it does nothing.
func (s *SchoolYearNotifier) Run(ctx context.Context) error {
	today := s.now().In(s.loc)
	start := stats.SchoolYearStart(today)
	if today.YearDay() != start.YearDay() || today.Year() != start.Year() {
		return nil
	}
	year := stats.SchoolYearStartYear(today)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == year {
		return nil
	}
	_, err := s.out.Broadcast(ctx, models.Admin, models.Notification{
		Type:    models.GeneralNotice,
		Title:   "New school year",
		Message: fmt.Sprintf("School year %s has started. Final grades and attendance stats start from scratch.", stats.SchoolYearLabel(today)),
		LinkURL: "/admin",
	})
	if err != nil {
		return fmt.Errorf("school year notice: %w", err)
	}
	s.last = year
	return nil
}
