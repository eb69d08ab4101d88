package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/zex-fi/zexbridge/internal/deriver"
)

// verify is a manual sanity-check tool: given the same factory/bytecode-hash
// or master BTC pubkey configured for a chain, print the addresses it would
// derive for a small range of user IDs, to compare against what the vault
// contracts or wallet tooling independently compute.
func main() {
	factory := flag.String("factory", "", "EVM factory contract address")
	bytecodeHash := flag.String("bytecode-hash", "", "EVM proxy init-code hash")
	masterPubKey := flag.String("master-pubkey", "", "BTC master public key (hex)")
	network := flag.String("network", "testnet", "mainnet or testnet")
	count := flag.Uint64("count", 3, "number of user IDs to derive, starting at 0")
	flag.Parse()

	if *factory != "" && *bytecodeHash != "" {
		d, err := deriver.NewEVM(*factory, *bytecodeHash)
		if err != nil {
			log.Fatalf("evm deriver: %v", err)
		}
		fmt.Println("=== EVM (CREATE2) ===")
		for i := uint64(0); i < *count; i++ {
			fmt.Printf("  user %d: %s\n", i, d.Derive(i).Hex())
		}
	}

	if *masterPubKey != "" {
		d, err := deriver.NewBTC(*masterPubKey, *network)
		if err != nil {
			log.Fatalf("btc deriver: %v", err)
		}
		fmt.Println("=== BTC (Taproot) ===")
		for i := uint64(0); i < *count; i++ {
			addr, err := d.Derive(i)
			if err != nil {
				log.Fatalf("derive user %d: %v", i, err)
			}
			fmt.Printf("  user %d: %s\n", i, addr.EncodeAddress())
		}
	}

	if *factory == "" && *masterPubKey == "" {
		flag.Usage()
	}
}
