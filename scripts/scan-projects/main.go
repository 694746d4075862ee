// scan-projects: reads the project range and the newest project's
// invocation count of every built-in core contract on every network in
// parallel and prints a summary table. Useful to check the static
// deployment list against chain state.
//
// Run from the module root:
//
//	go run ./scripts/scan-projects
//
// OGVIEW_JSON_RPC_PROVIDER_URL replaces the first built-in RPC of mainnet.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
)

const rpcTimeout = 20 * time.Second

// ── types ─────────────────────────────────────────────────────────────────────

type result struct {
	network  string
	label    string
	address  string
	version  string
	projects string
	latest   string
	err      string
	order    int
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	env := config.ReadEnv()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, net := range chain.NewRegistry().All() {
		reg := deployments.ForChain(net.ChainID)
		if reg.Len() == 0 || len(net.RPCs) == 0 {
			continue
		}
		rpcURL := net.RPCs[0]
		if net.Name == config.DefaultNetwork && env.RPCURL != "" {
			rpcURL = env.RPCURL
		}
		reader := artblocks.NewReader(chain.NewEVMClient(rpcURL), net.Generator, net.DependencyRegistry)

		for i, d := range reg.All() {
			wg.Add(1)
			go func(network string, order int, d deployments.Deployment) {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
				defer cancel()

				r := result{
					network:  network,
					label:    d.DisplayName(),
					address:  shortAddr(d.Address.Hex()),
					version:  d.VersionString(),
					projects: "—",
					latest:   "—",
					order:    order,
				}

				rng, err := reader.ProjectRange(ctx, d)
				if err != nil {
					r.err = shortErr(err)
				} else {
					r.projects = rng.String()
					n, err := reader.ProjectInvocations(ctx, d, rng.Max)
					if err != nil {
						r.err = shortErr(err)
					} else {
						r.latest = fmt.Sprintf("#%d: %d minted", rng.Max, n)
					}
				}

				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}(net.Name, i, d)
		}
	}

	wg.Wait()

	printTable(results)
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.network != b.network {
			return a.network < b.network
		}
		return a.order < b.order
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tCONTRACT\tADDRESS\tABI\tPROJECTS\tLATEST\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 8)+"\t"+
		strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 4)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 16)+"\t"+
		strings.Repeat("-", 12))

	lastNetwork := ""
	for _, r := range results {
		if r.network != lastNetwork {
			if lastNetwork != "" {
				fmt.Fprintln(w, "\t\t\t\t\t\t")
			}
			lastNetwork = r.network
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.network, r.label, r.address, r.version, r.projects, r.latest, r.err)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
