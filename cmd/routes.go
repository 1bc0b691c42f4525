package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripbot/internal/tripbot"
)

func (app *application) routes() (http.Handler, error) {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)

	mux := pat.New()

	if err := tripbot.RegisterRoutes(mux, standardMiddleware, app.deps); err != nil {
		return nil, err
	}
	mux.Get("/metrics", standardMiddleware.Then(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})))

	return mux, nil
}
