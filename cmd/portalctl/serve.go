package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/action"
	"github.com/MrEthical07/portalAuth/metrics/export/prometheus"
	"github.com/MrEthical07/portalAuth/middleware"
	"github.com/MrEthical07/portalAuth/route"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the portal areas behind their guards",
	Long: `Serves every portal area behind its guard, the sign-in endpoints and
/metrics. Requests arriving before the stored session is validated get 503.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := portalAuth.New().WithConfig(cfg).WithLogger(logger).Build()
		if err != nil {
			return fmt.Errorf("build session manager: %w", err)
		}
		defer m.Close()

		reg, err := prometheus.NewRegistry(m)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           newRouter(m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			m.StartupValidate(ctx)
			logger.WithField("authenticated", m.Snapshot().IsAuthenticated).Info("session ready")
			return nil
		})
		eg.Go(func() error {
			logger.WithField("addr", serveAddr).Info("serving portal")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return eg.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

// newRouter mounts the sign-in endpoints and one sub-router per guarded
// area.
func newRouter(m *portalAuth.Manager, metrics http.Handler, log logrus.FieldLogger) http.Handler {
	homes := m.Resolver().Homes
	ctrl := action.New(m, m.Resolver(), action.WithLogger(log))

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		requestLogger(log),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_ = printYAML(w, viewOf(m))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guest(m, m.Resolver()))
		r.Get(homes.Login, page("sign in"))
		r.Get("/register", page("register"))
		r.Post(homes.Login, signInHandler(ctrl, action.KindLogin, func(req *http.Request) (action.Outcome, error) {
			return ctrl.Login(req.Context(), req.PostFormValue("email"), req.PostFormValue("password"), middleware.ReturnTo(req))
		}))
		r.Post("/staff-login", signInHandler(ctrl, action.KindStaffLogin, func(req *http.Request) (action.Outcome, error) {
			return ctrl.StaffLogin(req.Context(), req.PostFormValue("staffId"), middleware.ReturnTo(req))
		}))
		r.Post("/register", signInHandler(ctrl, action.KindRegister, func(req *http.Request) (action.Outcome, error) {
			return ctrl.Register(req.Context(), portalAuth.RegisterInput{
				Name:        req.PostFormValue("name"),
				Email:       req.PostFormValue("email"),
				PhoneNumber: req.PostFormValue("phoneNumber"),
				Password:    req.PostFormValue("password"),
			}, middleware.ReturnTo(req))
		}))
		r.Post("/google-signin", signInHandler(ctrl, action.KindGoogleSignIn, func(req *http.Request) (action.Outcome, error) {
			return ctrl.GoogleSignIn(req.Context(), req.PostFormValue("token"), middleware.ReturnTo(req))
		}))
	})

	r.Post("/logout", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, ctrl.Logout(req.Context()), http.StatusSeeOther)
	})

	for _, area := range areas(m.Guards(), homes) {
		g := area.guard
		r.Route(area.prefix, func(r chi.Router) {
			r.Use(middleware.Protect(m, g))
			r.Get("/", areaPage(g.Name()))
			r.Get("/*", areaPage(g.Name()))
		})
	}
	return r
}

type area struct {
	prefix string
	guard  route.Guard
}

// areas pairs each guard with the top-level path of the module it
// protects.
func areas(t route.Table, h route.Homes) []area {
	return []area{
		{prefix: topLevel(h.User), guard: t.Authenticated},
		{prefix: topLevel(h.Admin), guard: t.AdminOnly},
		{prefix: topLevel(h.Manager), guard: t.ManagerOrAdmin},
		{prefix: topLevel(h.Accountant), guard: t.AccountantOrAdmin},
		{prefix: topLevel(h.Staff), guard: t.StaffOrAdmin},
		{prefix: topLevel(h.Delivery), guard: t.DeliveryOrAdminOrLab},
		{prefix: topLevel(h.Lab), guard: t.LabOnly},
	}
}

// topLevel returns the first segment of p: "/admin/home" becomes "/admin".
func topLevel(p string) string {
	rest := strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return "/" + rest
}

func page(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, title)
	}
}

func areaPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := middleware.SessionFromContext(r.Context())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		var who, class string
		if s.User != nil {
			who = displayName(s.User.Name, s.User.Email)
			class = s.Role().CSSClass()
		}
		_, _ = fmt.Fprintf(w, "%s area\nuser: %s\nclass: %s\n", name, who, class)
	}
}

func signInHandler(ctrl *action.Controller, kind action.Kind, submit func(*http.Request) (action.Outcome, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := submit(r)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, portalAuth.ErrAuthentication) {
				status = http.StatusUnauthorized
			}
			http.Error(w, ctrl.ErrorMessage(kind), status)
			return
		}
		http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
	}
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"request_id": chimw.GetReqID(r.Context()),
				"duration":   time.Since(start),
			}).Debug("request")
		})
	}
}
