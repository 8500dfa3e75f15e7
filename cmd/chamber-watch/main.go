// Command chamber-watch is a terminal dashboard for a running chamber
// controller. It polls the controller's HTTP telemetry endpoint.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sweeney/chamber-controller/internal/tui"
)

func main() {
	url := flag.String("url", "http://localhost:8080", "Controller HTTP base URL")
	interval := flag.Duration("interval", 2*time.Second, "Poll interval")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	model := tui.New(tui.HTTPFetcher(client, *url), *interval)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
