package tripbot

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/lock"
	"tripbot/internal/tripbot/timeutil"
)

// Logger provides minimal logging required by the trip bot module.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Store is the trip record store: the spreadsheet or a SQL table.
type Store interface {
	LoadAll(ctx context.Context) ([]models.Trip, error)
	Get(ctx context.Context, id string) (models.Trip, error)
	Save(ctx context.Context, t models.Trip) error
	Append(ctx context.Context, d models.TripDraft) (string, error)
}

// Deps groups external dependencies needed by the trip bot module.
type Deps struct {
	Store    Store
	Locker   lock.Locker
	Logger   Logger
	Config   TripBotConfig
	Registry prometheus.Registerer
	Clock    timeutil.Clock
	module   *moduleState
}

// Validate ensures required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Store == nil {
		return errors.New("tripbot deps: Store is required")
	}
	if d.Logger == nil {
		return errors.New("tripbot deps: Logger is required")
	}
	if d.Config.BridgeTokenSecret == "" {
		return errors.New("tripbot deps: Config.BridgeTokenSecret is required")
	}
	if d.Locker == nil {
		d.Locker = lock.NewKeyedMutex()
	}
	if d.Clock == nil {
		d.Clock = timeutil.System{Loc: timeutil.LoadLocation(d.Config.Timezone)}
	}
	return nil
}
