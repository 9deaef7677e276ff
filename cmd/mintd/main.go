// Command mintd runs a single federation peer: it loads this peer's share
// of the federation's denomination keys, joins the peer-to-peer network,
// and drives the transaction consensus engine. Key generation itself
// (the "keygen" subcommand) uses a trusted dealer — distributed key
// generation over the peer-to-peer layer is out of scope for this core
// (spec.md §1) and is expected to be supplied by an enclosing deployment.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/fedimint-go/mintcore/ledger"
	"github.com/fedimint-go/mintcore/mint"
	"github.com/fedimint-go/mintcore/network"
	"github.com/fedimint-go/mintcore/store"
	"github.com/fedimint-go/mintcore/txengine"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "run":
		err = runPeer(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mintd keygen -peers N -f F -amounts 1,2,4,8 -out DIR")
	fmt.Fprintln(os.Stderr, "       mintd run -rank R -config FILE -addresses FILE [-issue AMOUNT]")
}

// runKeygen samples one trusted-dealer polynomial per denomination tier
// and writes every peer's config to <out>/peer<rank>.json.
func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	numPeers := fs.Int("peers", 4, "number of federation peers")
	f := fs.Int("f", 1, "number of tolerated faulty peers")
	amountsCSV := fs.String("amounts", "1,2,4,8,16,32,64,128", "comma-separated denomination tiers (msat)")
	out := fs.String("out", ".", "output directory for peer config files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amounts, err := parseAmounts(*amountsCSV)
	if err != nil {
		return err
	}

	suite := mint.Suite()
	privates, consensus, aggregates, _ := mint.TrustedDealerKeygen(suite, amounts, *numPeers, *f)

	if err := os.MkdirAll(*out, 0700); err != nil {
		return err
	}
	for i := 0; i < *numPeers; i++ {
		path := fmt.Sprintf("%s/peer%d.json", *out, i)
		if err := writeConfigFile(path, mint.PeerId(i), privates[i], consensus, aggregates); err != nil {
			return err
		}
		pterm.Success.Printfln("wrote %s", path)
	}
	return nil
}

func parseAmounts(csv string) ([]mint.Amount, error) {
	var amounts []mint.Amount
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			var v uint64
			if _, err := fmt.Sscanf(csv[start:i], "%d", &v); err != nil {
				return nil, fmt.Errorf("bad amount %q: %v", csv[start:i], err)
			}
			amounts = append(amounts, mint.Amount(v))
			start = i + 1
		}
	}
	return amounts, nil
}

// runPeer loads this peer's config, joins the federation network, and
// either proposes a one-shot issuance transaction (-issue) or waits for
// one proposal from rank 0 before printing the resulting ledger state.
func runPeer(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	rank := fs.Int("rank", 0, "this peer's rank")
	configPath := fs.String("config", "", "path to this peer's config file (from keygen)")
	addressesPath := fs.String("addresses", "", "path to a JSON {rank: address} map")
	issue := fs.Uint64("issue", 0, "if set (and rank==0), propose an issuance of this many msat and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" || *addressesPath == "" {
		return fmt.Errorf("both -config and -addresses are required")
	}

	rawAddresses, err := readAddresses(*addressesPath)
	if err != nil {
		return err
	}
	addresses, err := resolveAddresses(rawAddresses, 7000)
	if err != nil {
		return err
	}

	suite := mint.Suite()
	cfg, aggregates, err := readConfigFile(suite, *configPath)
	if err != nil {
		return err
	}
	if err := mint.ValidateConfig(suite, cfg); err != nil {
		return fmt.Errorf("config failed validation: %v", err)
	}
	m := mint.NewMint(suite, cfg, aggregates)

	listener, err := net.Listen("tcp", addresses[*rank])
	if err != nil {
		return err
	}
	peer := network.NewPeer(*rank, addresses, listener, 30*time.Second)
	defer peer.Close()
	p2p := network.NewP2P(&peer)

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}

	chain := ledger.NewBlockchain()
	node := txengine.NewTransactionNode(
		pub, priv,
		map[mint.PeerId]ed25519.PublicKey{mint.PeerId(*rank): pub},
		m, store.NewMemStore(), chain, p2p,
	)
	if err := node.UpdatePeers(); err != nil {
		return fmt.Errorf("failed to exchange public keys: %v", err)
	}

	ctx := context.Background()
	if *rank == 0 && *issue > 0 {
		blind := suite.G1().Point().Pick(suite.RandomStream())
		tx := txengine.Transaction{Outputs: []mint.Output{{Amount: mint.Amount(*issue), BlindNonce: blind}}}
		proposal, err := txengine.MakeProposal(mint.PeerId(*rank), tx)
		if err != nil {
			return err
		}
		if err := proposal.Sign(priv); err != nil {
			return err
		}
		pterm.Info.Printfln("proposing issuance of %d msat", *issue)
		if err := node.ProposeTransaction(ctx, &proposal); err != nil {
			return err
		}
	} else {
		pterm.Info.Println("waiting for a proposal from rank 0...")
		if err := node.WaitForProposal(ctx, 0); err != nil {
			return err
		}
	}

	latest, err := chain.GetLatest()
	if err != nil {
		return err
	}
	printLedgerBlock(latest)
	return nil
}

func readAddresses(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var addresses map[int]string
	if err := json.Unmarshal(data, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func printLedgerBlock(b ledger.Block) {
	pterm.DefaultBox.WithTitle("latest ledger block").Println(
		fmt.Sprintf("index: %d\nissuance total: %d\nredemption total: %d\nitems: %d",
			b.Index, b.IssuanceTotal, b.RedemptionTotal, len(b.Items)))
}
