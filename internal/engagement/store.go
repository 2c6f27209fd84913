package engagement

import (
	"context"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// Store is the persistence boundary of the engagement service. All methods
// operate on a single user's state; implementations surface their own errors
// unmodified except GetProfile, which must return ErrProfileNotFound for an
// unknown user.
type Store interface {
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	SaveProfile(ctx context.Context, user *models.User) error

	RewardExists(ctx context.Context, userID int64, milestoneDay int) (bool, error)
	CreateReward(ctx context.Context, reward *models.StreakReward) error
	ListRewards(ctx context.Context, userID int64) ([]models.StreakReward, error)

	BadgeExists(ctx context.Context, userID int64, badgeID string) (bool, error)
	CreateBadge(ctx context.Context, badge *models.UserBadge) error

	// Transact runs fn atomically against a store view scoped to one unit of
	// work. A SQL implementation wraps fn in a transaction and locks the
	// user's row; duplicate activity events then serialize per user instead
	// of racing each other.
	Transact(ctx context.Context, fn func(Store) error) error
}

// Clock supplies the current time. Injected so tests control "today" and
// streak-gap arithmetic deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
