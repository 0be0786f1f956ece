package main

import (
	"log"

	"github.com/MicroPhone1/App-HelpPeople/internal/client"
	"github.com/MicroPhone1/App-HelpPeople/internal/config"
	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

// Notifier renders an incoming alert for the caregiver. Sound playback and
// text-to-speech are platform concerns that plug in here.
type Notifier interface {
	Notify(rec model.AlertRecord)
}

// logNotifier is the default Notifier: one line per alert.
type logNotifier struct{}

func (logNotifier) Notify(rec model.AlertRecord) {
	if rec.Transcript != "" && rec.Transcript != rec.Keyword {
		log.Printf("[alert] %s (%s) [%s] time=%s received=%s from=%s",
			rec.Message, rec.Keyword, rec.Transcript, rec.Time, rec.ReceivedAt, rec.From)
		return
	}
	log.Printf("[alert] %s (%s) time=%s received=%s from=%s",
		rec.Message, rec.Keyword, rec.Time, rec.ReceivedAt, rec.From)
}

// cmdWatch runs the caregiver side: connect, print the recent backlog, then
// print every live alert as it lands.
func cmdWatch() {
	cfg := config.Load()

	ctx, stop := signalContext()
	defer stop()

	var notifier Notifier = logNotifier{}

	cli := client.New(client.Config{
		URL:         cfg.ServerURL,
		MaxAttempts: cfg.ReconnectAttempts,
		RetryDelay:  cfg.ReconnectDelay(),
		OnConnected: func() {
			log.Println("[watch] connected to server")
		},
		OnDisconnected: func(err error) {
			if err != nil {
				log.Printf("[watch] disconnected: %v", err)
			}
		},
		OnInit: func(recs []model.AlertRecord) {
			if len(recs) == 0 {
				log.Println("[watch] no recent alerts")
				return
			}
			log.Printf("[watch] %d recent alert(s):", len(recs))
			for _, rec := range recs {
				notifier.Notify(rec)
			}
		},
		OnAlert: func(rec model.AlertRecord) {
			notifier.Notify(rec)
		},
	})

	go func() {
		<-ctx.Done()
		cli.Close()
	}()

	cli.Run(ctx)
	log.Println("goodbye")
}
