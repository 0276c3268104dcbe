// Command pvpd is the standalone CLI/HTTP front door for the PvP
// settlement engine: outside the TEE this spec assumes, something has to
// own the ledger file, the process-wide RNG/clock, and the authenticated
// sender, and hand commands to internal/command the way the host runtime
// would. Matches the teacher pack's cobra-root-plus-subcommands CLI
// convention (orbas1-Synnergy's cmd/synnergy) rather than the lesson
// series' one-shot flag.Parse() scripts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"evm-pvp-settlement/internal/command"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/network"
)

func main() {
	root := &cobra.Command{
		Use:   "pvpd",
		Short: "custodial PvP settlement engine",
	}
	var dbPath string
	root.PersistentFlags().StringVar(&dbPath, "db", "pvpd.sqlite", "path to the ledger sqlite file")

	root.AddCommand(serveCmd(&dbPath))
	root.AddCommand(cmdCmd(&dbPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDispatcher(dbPath string) (*command.Dispatcher, *ledger.SQLiteStore, error) {
	store, err := ledger.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return command.New(store), store, nil
}

func defaultRuntime(sender string) host.Runtime {
	return host.Runtime{
		Clock:  host.SystemClock{},
		RNG:    host.CryptoRNG{},
		Sender: host.StaticSender(sender),
		Notifier: host.LogNotifier{Logf: func(format string, args ...any) {
			logrus.Infof(format, args...)
		}},
	}
}

func serveCmd(dbPath *string) *cobra.Command {
	var addr string
	var seedPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP command front door",
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher, store, err := openDispatcher(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if seedPath != "" {
				if err := seedNetworks(dispatcher, seedPath); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)
			r.Post("/command/{name}", httpCommandHandler(dispatcher))

			logrus.Infof("pvpd listening on %s", addr)
			return http.ListenAndServe(addr, r)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8090", "HTTP listen address")
	cmd.Flags().StringVar(&seedPath, "seed", "", "optional YAML file of networks to preload via network_add")
	return cmd
}

// httpCommandHandler decodes the authenticated sender from a header (there
// is no session concept outside the TEE — see host.StaticSender) and the
// command body as the raw JSON payload, then delegates to the same
// dispatcher the CLI uses.
func httpCommandHandler(d *command.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		sender := r.Header.Get("X-Sender")
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			raw = json.RawMessage("{}")
		}
		msg, err := d.Handle(r.Context(), defaultRuntime(sender), name, raw)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, msg)
	}
}

func cmdCmd(dbPath *string) *cobra.Command {
	var sender string
	cmd := &cobra.Command{
		Use:   "cmd <name> <json>",
		Short: "run a single command against the ledger and print the notification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher, store, err := openDispatcher(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			msg, err := dispatcher.Handle(context.Background(), defaultRuntime(sender), args[0], json.RawMessage(args[1]))
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			if err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "authenticated sender identity for this call")
	return cmd
}

// seedNetworks preloads network_add calls from a YAML fixture for
// local/demo runs — convenience only, no core semantics (spec §6's
// "Environment": all configuration still arrives via commands, this just
// issues them for you at startup).
func seedNetworks(d *command.Dispatcher, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cfg struct {
		Networks []network.Network `yaml:"networks"`
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return err
	}
	for _, n := range cfg.Networks {
		if err := d.Networks.Add(n); err != nil {
			return fmt.Errorf("seed network %s: %w", n.Name, err)
		}
	}
	return nil
}
