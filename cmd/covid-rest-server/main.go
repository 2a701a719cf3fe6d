package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/gemba/covid19-rest-server/pkg/authzserver"
	"github.com/gemba/covid19-rest-server/pkg/authzserver/authweb"
	"github.com/gemba/covid19-rest-server/pkg/covid"
	"github.com/gemba/covid19-rest-server/pkg/guard"
	"github.com/gemba/covid19-rest-server/pkg/prettylog"
	"github.com/gemba/covid19-rest-server/pkg/util"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func main() {
	godotenv.Load()

	devMode := util.GetEnv("DEV_MODE", "false") == "true"
	if devMode {
		slog.SetDefault(slog.New(prettylog.NewHandler(slog.LevelDebug)))
		slog.Info("Starting the app in development mode")
	}

	configPath := util.GetEnv("CONFIG_PATH", "config/server.yaml")
	slog.Info("Loading server config", "config_path", configPath)
	cfg, err := authzserver.LoadConfigFile(configPath)
	if err != nil {
		log.Fatal(err)
	}

	root := echo.New()
	root.HideBanner = true
	root.Validator = &CustomValidator{validator: validator.New()}
	root.Use(middleware.Recover())
	root.Use(middleware.CORS())
	if devMode {
		root.Use(middleware.Logger())
	}

	as, err := authzserver.New(
		authzserver.WithIssuer(cfg.Issuer),
		authzserver.WithClients(cfg.Clients),
		authzserver.WithUsers(cfg.Users),
		authzserver.WithSigningKeyFromPEM(cfg.SignPrivateKeyPath),
	)
	if err != nil {
		log.Fatal(err)
	}

	as.MountRoutes(root.Group(""))
	authweb.MountRoutes(root.Group(""), as)

	tokenGuard, err := guard.NewFromPEM(cfg.VerifyPublicKeyPath, cfg.Issuer)
	if err != nil {
		log.Fatal(err)
	}

	api := covid.NewAPI(covid.NewClient(util.GetEnv("REST_URL", cfg.UpstreamURL)))
	api.MountRoutes(root.Group("/rest", tokenGuard.Middleware))

	root.Static("/static", "static")
	root.File("/favicon.ico", "static/favicon.ico")

	addr := util.GetEnv("SERVER_ADDR", cfg.Address)
	slog.Info("Starting covid-rest-server", "addr", addr)
	log.Fatal(http.ListenAndServe(addr, root))
}
