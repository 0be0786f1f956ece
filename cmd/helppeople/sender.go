package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MicroPhone1/App-HelpPeople/internal/capture"
	"github.com/MicroPhone1/App-HelpPeople/internal/client"
	"github.com/MicroPhone1/App-HelpPeople/internal/config"
	"github.com/MicroPhone1/App-HelpPeople/internal/model"
	"github.com/MicroPhone1/App-HelpPeople/internal/session"
)

// connectedToastTTL is how long the "connected" indicator stays up.
const connectedToastTTL = 2000 * time.Millisecond

// consoleStatus renders session state for a terminal sender.
type consoleStatus struct{}

func (consoleStatus) ListeningChanged(listening bool) {
	if listening {
		log.Println("[session] listening for voice commands...")
	} else {
		log.Println("[session] paused")
	}
}

func (consoleStatus) StatusShown(label string) {
	if label == "" {
		return // indicator cleared
	}
	log.Printf("[session] >> %s", label)
}

func (consoleStatus) ErrorShown(msg string) {
	if msg == "" {
		return // banner cleared
	}
	log.Printf("[session] error: %s", msg)
}

// cmdSender runs the patient-side continuous listening session. Finalized
// transcripts come in line by line on stdin; typing a trigger word and
// pressing Enter stands in for the original's manual trigger buttons.
func cmdSender() {
	cfg := config.Load()

	src := capture.NewLineSource(os.Stdin)
	if src == nil {
		fmt.Fprintln(os.Stderr, "no capture source available")
		os.Exit(1)
	}

	triggers := cfg.Triggers
	if len(triggers) == 0 {
		triggers = session.DefaultTriggers()
	}

	ctx, stop := signalContext()
	defer stop()

	var sess *session.Session
	status := consoleStatus{}

	cli := client.New(client.Config{
		URL:         cfg.ServerURL,
		MaxAttempts: cfg.ReconnectAttempts,
		RetryDelay:  cfg.ReconnectDelay(),
		OnConnected: func() {
			status.ErrorShown("")
			sess.ShowStatus("connected to server", connectedToastTTL)
		},
		OnDisconnected: func(err error) {
			if err != nil {
				status.ErrorShown(fmt.Sprintf("cannot reach server: %v", err))
			}
		},
		OnServerError: func(msg string) {
			status.ErrorShown(fmt.Sprintf("server rejected alert: %s", msg))
		},
		OnAlert: func(rec model.AlertRecord) {
			// Every broadcast comes back to the sender too; that is the
			// delivery confirmation.
			log.Printf("[sender] delivered: %s (received %s)", rec.Message, rec.ReceivedAt)
		},
	})

	sess = session.New(src, session.Config{
		Triggers: triggers,
		Submit:   cli.Submit,
		Sink:     status,
	})

	log.Println("[sender] speak (or type) one of these trigger words:")
	for _, t := range triggers {
		log.Printf("[sender]   %s: %s", t.Keyword, t.Label)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cli.Run(ctx)
		return nil
	})

	if err := sess.Start(); err != nil {
		log.Printf("[sender] capture unavailable: %v", err)
	}

	<-ctx.Done()
	sess.Close()
	cli.Close()
	g.Wait()
	log.Println("goodbye")
}
