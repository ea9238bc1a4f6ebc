// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminfeature "github.com/taskforge/taskforge/internal/app/features/admin"
	appsfeature "github.com/taskforge/taskforge/internal/app/features/applications"
	authfeature "github.com/taskforge/taskforge/internal/app/features/auth"
	healthfeature "github.com/taskforge/taskforge/internal/app/features/health"
	profilefeature "github.com/taskforge/taskforge/internal/app/features/profile"
	tasksfeature "github.com/taskforge/taskforge/internal/app/features/tasks"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
)

// BuildHandler constructs the root HTTP handler for the API.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and Startup have completed. Feature routers are mounted per area; the
// auth gate is shared so every protected subrouter runs the same checks.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	g := &gate.Gate{
		Tokens:    deps.Tokens,
		Sessions:  deps.Sessions,
		Blacklist: deps.Blacklist,
		Users:     deps.Users,
		Log:       logger,
	}

	r := chi.NewRouter()

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	authHandler := &authfeature.Handler{
		Users:     deps.Users,
		Sessions:  deps.Sessions,
		Blacklist: deps.Blacklist,
		Tokens:    deps.Tokens,
		Log:       logger,
	}
	r.Mount("/auth", authfeature.Routes(authHandler, g))

	tasksHandler := &tasksfeature.Handler{Tasks: deps.Tasks, Log: logger}
	r.Mount("/tasks", tasksfeature.Routes(tasksHandler))

	appsHandler := &appsfeature.Handler{
		Apps:    deps.Apps,
		Tasks:   deps.Tasks,
		Uploads: deps.Uploads,
		Log:     logger,
	}
	r.Mount("/applications", appsfeature.Routes(appsHandler, g))

	profileHandler := &profilefeature.Handler{
		Users:        deps.Users,
		Uploads:      deps.Uploads,
		Log:          logger,
		ImageBaseURL: appCfg.BaseURL + appCfg.UploadURL,
	}
	r.Mount("/profile", profilefeature.Routes(profileHandler, g))

	adminHandler := &adminfeature.Handler{
		Users:     deps.Users,
		Tasks:     deps.Tasks,
		Apps:      deps.Apps,
		Completed: deps.Completed,
		Sessions:  deps.Sessions,
		Blacklist: deps.Blacklist,
		Tokens:    deps.Tokens,
		Uploads:   deps.Uploads,
		Log:       logger,
	}
	r.Mount("/admin", adminfeature.Routes(adminHandler, g))

	// Stored profile images. Saver paths start with the subdir, so the
	// mount prefix must include it: /files/profiles/2026/08/x.png maps to
	// UploadDir/profiles/2026/08/x.png. Submission deliverables are served
	// only through the admin download endpoint, never from here.
	imagesURL := appCfg.UploadURL + "/profiles"
	r.Handle(imagesURL+"/*", fileserver.Handler(imagesURL, appCfg.UploadDir+"/profiles"))

	return r, nil
}
