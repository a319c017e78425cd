// Command tablewatch attaches to the realtime hub and prints every event it
// receives. It reconnects with backoff like the ordering clients do.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

func main() {
	var (
		url       = flag.String("url", envOr("TABLEWATCH_URL", "ws://localhost:8080/ws"), "hub websocket url")
		role      = flag.String("role", "staff", "customer, staff or admin")
		tableID   = flag.String("table", "", "table id (customer role)")
		sessionID = flag.String("session", "", "session id")
		token     = flag.String("token", os.Getenv("TABLEWATCH_TOKEN"), "bearer token (staff and admin)")
		callStaff = flag.Bool("call-staff", false, "send CALL_STAFF once connected (customer role)")
		raw       = flag.Bool("json", false, "print raw JSON")
	)
	flag.Parse()

	r := models.Role(*role)
	if !r.IsValid() {
		utils.ErrorLogger.Fatalf("unknown role %q", *role)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *realtime.Client
	client = realtime.NewClient(realtime.ClientOptions{
		URL:       *url,
		Role:      r,
		TableID:   *tableID,
		SessionID: *sessionID,
		Token:     *token,
		OnMessage: func(m realtime.Message) { printMessage(m, *raw) },
		OnConnect: func() {
			if !*callStaff {
				return
			}
			msg := realtime.Message{Type: realtime.EventCallStaff, Payload: map[string]string{"source": "tablewatch"}}
			if err := client.Send(msg); err != nil {
				utils.ErrorLogger.WithError(err).Warn("call staff")
			}
		},
	})

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		utils.ErrorLogger.Fatalf("tablewatch: %v", err)
	}
}

func printMessage(m realtime.Message, raw bool) {
	if raw {
		b, _ := json.Marshal(m)
		fmt.Println(string(b))
		return
	}
	ts := time.UnixMilli(m.Timestamp).Format("15:04:05.000")
	payload, _ := json.Marshal(m.Payload)
	if len(payload) > 160 {
		payload = append(payload[:157], "..."...)
	}
	fmt.Printf("%s %-22s table=%-4s session=%-4s %s\n", ts, m.Type, m.TableID, m.SessionID, payload)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
