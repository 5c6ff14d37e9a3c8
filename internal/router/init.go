package router

import (
	"github.com/oksasatya/pks-portal/internal/application"
	"github.com/oksasatya/pks-portal/internal/container"
	handlers "github.com/oksasatya/pks-portal/internal/interface/http"
	"github.com/oksasatya/pks-portal/internal/router/modules"
	"github.com/oksasatya/pks-portal/pkg/helpers"
	mailtpl "github.com/oksasatya/pks-portal/pkg/mailer/templates"
)

// Services are the application services built from a container.
type Services struct {
	Gate      *application.Gate
	Users     *application.Service
	PKS       *application.PKSService
	Dashboard *application.DashboardService
}

// BuildServices wires the application layer on top of c.
func BuildServices(c *container.Container) Services {
	cfg := c.Config
	mail := application.MailSettings{
		Enabled:   cfg.MailSendEnabled,
		VerifyURL: cfg.VerifyEmailURL,
		ResetURL:  cfg.ResetPasswordURL,
		Brand: mailtpl.Brand{
			AppName:        cfg.AppName,
			CompanyName:    cfg.CompanyName,
			CompanyAddress: cfg.CompanyAddress,
			LogoURL:        cfg.LogoURL,
			SupportURL:     cfg.SupportURL,
		},
	}
	users := application.NewService(c.Users, c.JWT, c.Mail, mail, c.Logger)
	users.ResetTTL = cfg.ResetTokenTTL

	return Services{
		Gate:      application.NewGate(c.Users, c.JWT),
		Users:     users,
		PKS:       application.NewPKSService(c.PKS, c.Users, c.Events, c.Index, c.Logger),
		Dashboard: application.NewDashboardService(c.Users, c.PKS, c.Cache, cfg.DashboardCacheTTL, c.Logger),
	}
}

// InitModules registers every feature module with the registry.
// This should be called once during startup.
func InitModules(r *Registry, c *container.Container) error {
	cfg := c.Config
	expose := !cfg.IsProduction()
	svc := BuildServices(c)

	authH := handlers.NewAuthHandler(svc.Users, c.Audits, helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure), c.Logger, expose)
	userH := handlers.NewUserHandler(svc.Users, c.Logger, expose)
	pksH := handlers.NewPKSHandler(svc.PKS, c.Files, c.Logger, expose)
	dashH := handlers.NewDashboardHandler(svc.Dashboard, expose)
	wsH := handlers.NewRealtimeHandler(c.Hub, cfg.CORSOrigins(), c.Logger, expose)

	r.Add(healthModule)
	r.Add(modules.NewUsersModule(authH, userH, svc.Gate, c.Redis, expose))
	r.Add(modules.NewPKSModule(pksH, svc.Gate, cfg.UploadMaxBytes, expose))
	r.Add(modules.NewAdminModule(dashH, userH, pksH, svc.Gate, expose))
	r.AddRoot(modules.NewRealtimeModule(wsH, svc.Gate, expose))

	if cfg.BPJSBaseURL != "" {
		proxy, err := handlers.NewBPJSProxy(cfg.BPJSBaseURL, c.Logger)
		if err != nil {
			return err
		}
		r.Add(modules.NewBPJSModule(proxy))
	}
	if cfg.StorageDriver == "" || cfg.StorageDriver == "local" {
		r.AddRoot(modules.NewUploadsModule(handlers.NewUploadsHandler(cfg.UploadDir)))
	}
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
	return nil
}
