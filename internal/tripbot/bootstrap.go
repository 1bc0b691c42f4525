package tripbot

import (
	"context"
	"fmt"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"tripbot/internal/tripbot/dispatch"
	tripbothttp "tripbot/internal/tripbot/http"
	"tripbot/internal/tripbot/metrics"
	"tripbot/internal/tripbot/timeutil"
	"tripbot/internal/tripbot/ws"
	"tripbot/utils"
)

type moduleState struct {
	bridge     *ws.Bridge
	dispatcher *dispatch.Dispatcher
	server     *tripbothttp.Server
	tokens     *utils.Manager
	metrics    *metrics.Metrics
}

func ensureModule(deps *Deps) (*moduleState, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}

	tokens, err := utils.NewManager(deps.Config.BridgeTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("tripbot: token manager: %w", err)
	}

	m := metrics.New(deps.Registry)
	bridge := ws.NewBridge(deps.Logger)
	dispatcher := dispatch.New(deps.Store, bridge, deps.Locker, deps.Clock, deps.Logger, m, dispatch.Config{
		SweepTick:   deps.Config.SweepTick,
		SendTimeout: deps.Config.SendTimeout,
		QueueSize:   deps.Config.QueueSize,
		Location:    timeutil.LoadLocation(deps.Config.Timezone),
	})
	bridge.OnMessage(dispatcher.Submit)
	server := tripbothttp.NewServer(deps.Logger, dispatcher, deps.Store, bridge, tokens)

	deps.module = &moduleState{
		bridge:     bridge,
		dispatcher: dispatcher,
		server:     server,
		tokens:     tokens,
		metrics:    m,
	}
	return deps.module, nil
}

// RegisterRoutes wires HTTP and WebSocket routes into the provided mux.
func RegisterRoutes(mux *pat.PatternServeMux, base alice.Chain, deps *Deps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	module.server.RegisterRoutes(mux, base)
	return nil
}

// StartWorkers launches the dispatcher loop.
func StartWorkers(ctx context.Context, deps *Deps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	go module.dispatcher.Run(ctx)
	return nil
}
