// Command flatctl is the companion CLI: it sends exactly one control
// request to a running flatlined over its Unix-domain socket and prints the
// response payload verbatim to stdout.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/jan-schreib/flatlined/internal/config"
	"github.com/jan-schreib/flatlined/internal/control"
	"github.com/jan-schreib/flatlined/internal/logging"
)

type cli struct {
	Command string `short:"c" required:"" enum:"ok,status,statistic,quit,any" help:"Control command: ok, status, statistic, quit, or any."`
	Socket  string `short:"s" default:"${socketDefault}" help:"Path to flatlined's control socket."`
}

var kinds = map[string]control.Kind{
	"ok":        control.Ok,
	"status":    control.Status,
	"statistic": control.Statistic,
	"quit":      control.Quit,
	"any":       control.Any,
}

func main() {
	var params cli
	kong.Parse(&params, kong.Vars{"socketDefault": config.DefaultSocket})

	log := logging.NewLogger(false, true)

	resp, err := control.Request(params.Socket, control.NewMessage(kinds[params.Command]))
	if err != nil {
		log.Warn("control request failed", "socket", params.Socket, "error", err)
		os.Exit(1)
	}

	payload := resp.Payload()
	if resp.Kind == control.Statistic {
		payload = colorizeStatistic(payload)
	}
	fmt.Println(payload)
}

// colorizeStatistic highlights the ONLINE/OFFLINE suffix of each line of a
// STATISTIC response, the one place flatctl's own output (as opposed to its
// logging) uses color.
func colorizeStatistic(payload string) string {
	online := color.New(color.FgGreen).SprintFunc()
	offline := color.New(color.FgRed).SprintFunc()
	out := strings.ReplaceAll(payload, "OFFLINE:", offline("OFFLINE:"))
	out = strings.ReplaceAll(out, "ONLINE", online("ONLINE"))
	return out
}
