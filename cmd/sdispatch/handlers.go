package main

import (
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/config"
)

// healthHandler reports that the server is up.
func healthHandler(*common.Request) (*common.Response, error) {
	return common.NewResponse(http.StatusOK, map[string]any{"ok": true}), nil
}

// echoHandler returns the parsed JSON body of the request.
func echoHandler(req *common.Request) (*common.Response, error) {
	var body map[string]any
	if err := req.Decode(&body); err != nil {
		return nil, err
	}
	return common.NewResponse(http.StatusOK, body), nil
}

// routesHandler lists the paths reported by paths.
func routesHandler(paths func() []string) common.Handler {
	return func(*common.Request) (*common.Response, error) {
		return common.NewResponse(http.StatusOK, map[string]any{"routes": paths()}), nil
	}
}

// registerHandlers registers the handlers the binary ships with.
func registerHandlers(reg *config.Registry, paths func() []string) error {
	handlers := map[string]common.Handler{
		"health": healthHandler,
		"echo":   echoHandler,
		"routes": routesHandler(paths),
	}
	for name, h := range handlers {
		if err := reg.RegisterHandler(name, h); err != nil {
			return err
		}
	}
	return nil
}
