package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var (
	runDuration time.Duration
	showTables  bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long:  `Starts every node of the topology and runs until the duration elapses or SIGINT/SIGTERM is received.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := state.ReadTopology(state.TopologyPath)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		logger, closeLog, err := core.NewLogger(os.Stderr, "dvsim", level, state.LogPath)
		if err != nil {
			return err
		}
		defer closeLog()

		logSink := core.NewLogSink(logger)
		sinks := core.Sinks{logSink, core.MetricSink{}}

		out := cmd.OutOrStdout()
		var trace *core.TraceSink
		var sub chan any
		var wg sync.WaitGroup
		if showTables {
			trace = core.NewTraceSink()
			sub = trace.Subscribe(state.TraceBuffer)
			sinks = append(sinks, trace)
			wg.Add(1)
			go func() {
				defer wg.Done()
				printTableChanges(out, sub)
			}()
		}

		sim, err := core.NewSimulation(topo, sinks)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancelCause(context.Background())
		defer cancel(context.Canceled)
		if runDuration > 0 {
			var cancelTimeout context.CancelFunc
			ctx, cancelTimeout = context.WithTimeoutCause(ctx, runDuration, errors.New("simulation time elapsed"))
			defer cancelTimeout()
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(c)
		go func() {
			select {
			case <-c:
				cancel(errors.New("received shutdown signal"))
			case <-ctx.Done():
			}
		}()

		if state.DebugAddr != "" {
			go func() {
				logger.Warn("debug server stopped", "error", http.ListenAndServe(state.DebugAddr, nil))
			}()
			logger.Info("serving debug endpoints", "addr", state.DebugAddr)
		}

		logger.Info("simulation started", "routers", len(sim.Routers), "hosts", len(sim.Hosts), "links", len(topo.Links))
		err = sim.Run(ctx)
		logger.Info("simulation stopped", "reason", context.Cause(ctx), "suppressed", logSink.Suppressed.Load())

		if trace != nil {
			trace.Unregister(sub)
			close(sub)
			wg.Wait()
			_ = trace.Close()
		}
		if err != nil {
			return err
		}

		for _, r := range sim.Routers {
			fmt.Fprintf(out, "\n%s\n", r.Name())
			core.RenderRoutes(out, core.ViewOf(r.State()), nil)
			core.RenderForwarding(out, core.ViewOf(r.State()))
		}
		for _, h := range sim.Hosts {
			fmt.Fprintf(out, "\n%s received %d packets\n", h.Name(), len(h.Received()))
			for _, p := range h.Received() {
				fmt.Fprintf(out, "  %q\n", p.Payload)
			}
		}
		return nil
	},
	GroupID: "sim",
}

func printTableChanges(w io.Writer, sub <-chan any) {
	for msg := range sub {
		ev, ok := msg.(core.Event)
		if !ok {
			continue
		}
		if v, ok := core.ViewOfEvent(ev); ok {
			fmt.Fprintf(w, "\n%s %s\n", ev.Time.Format("15:04:05.000"), ev.Node)
			core.RenderRoutes(w, v, nil)
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "Stop after this long, 0 runs until interrupted")
	runCmd.Flags().BoolVar(&showTables, "table", false, "Print routing tables whenever they change")
	runCmd.Flags().StringVar(&state.LogPath, "log", state.LogPath, "Also write logs to this file")
	runCmd.Flags().StringVar(&state.DebugAddr, "debug-addr", state.DebugAddr, "Serve /debug/metrics and /debug/vars on this address")
}
