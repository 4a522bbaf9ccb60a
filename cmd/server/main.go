package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/halvax/qrcheckin/checkin"
	"github.com/halvax/qrcheckin/credential"
	"github.com/halvax/qrcheckin/internal/config"
	"github.com/halvax/qrcheckin/login"
	"github.com/halvax/qrcheckin/login/qrprovider"
	"github.com/halvax/qrcheckin/notify"
	"github.com/halvax/qrcheckin/onetime"
	"github.com/halvax/qrcheckin/server"
	"github.com/halvax/qrcheckin/store"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
	})
	defer redisClient.Close()
	st := store.NewRedis(redisClient, "qc")

	credentials, err := credential.NewManager(st,
		credential.WithMinTTL(c.GetCredentialMinTTL()),
		credential.WithDefaultHorizon(c.GetCredentialDefaultHorizon()),
	)
	if err != nil {
		return fmt.Errorf("credential.NewManager: %w", err)
	}

	references, err := onetime.NewIssuer(st, c.GetOnetimeSigningSecret(), onetime.WithTTL(c.GetOnetimeTTL()))
	if err != nil {
		return fmt.Errorf("onetime.NewIssuer: %w", err)
	}

	provider, err := qrprovider.New(qrprovider.Config{
		BaseURL:   c.GetProviderBaseURL(),
		ClientID:  c.GetProviderClientID(),
		UserAgent: c.GetProviderUserAgent(),
		Timeout:   c.GetProviderTimeout(),
	})
	if err != nil {
		return fmt.Errorf("qrprovider.New: %w", err)
	}

	submitter, err := checkin.NewClient(c.GetCheckinEndpoint(), c.GetProviderTimeout())
	if err != nil {
		return fmt.Errorf("checkin.NewClient: %w", err)
	}

	notifier := newNotifier(c, logger)

	orchestrator, err := checkin.NewOrchestrator(credentials, submitter, references,
		checkin.WithNotifier(notifier),
		checkin.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("checkin.NewOrchestrator: %w", err)
	}

	loginService, err := login.NewService(login.NewSessions(st), provider, credentials,
		login.WithTiming(login.Timing{
			SessionTTL:         c.GetSessionTTL(),
			TerminalSessionTTL: c.GetTerminalSessionTTL(),
			InactivityBound:    c.GetInactivityBound(),
		}),
		login.WithNotifier(notifier),
		login.WithLogger(logger),
		login.WithOnConfirmed(func(ctx context.Context) {
			if _, err := orchestrator.RunTick(ctx); err != nil {
				logger.Error().Err(err).Msg("check-in after confirmed login failed")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("login.NewService: %w", err)
	}

	srv, err := server.New(c, loginService, orchestrator, references, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go runScheduler(schedulerCtx, orchestrator, c.GetScheduleInterval(), logger)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	stopScheduler()
	returnError = shutdown(httpServer)
	return returnError
}

// runScheduler fires the check-in policy at the configured interval until
// the context is cancelled. Every tick is the same procedure the manual
// trigger runs.
func runScheduler(ctx context.Context, orchestrator *checkin.Orchestrator, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("check-in scheduler started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orchestrator.RunTick(ctx); err != nil {
				logger.Error().Err(err).Msg("scheduled check-in failed")
			}
		}
	}
}

// newNotifier picks the mail notifier when an account is configured and
// falls back to structured log output otherwise.
func newNotifier(c config.Config, logger zerolog.Logger) notify.Notifier {
	if c.GetSmtpAccount() != "" && c.GetSmtpRecipient() != "" {
		return notify.NewSMTP(c)
	}
	return notify.NewLog(logger)
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
