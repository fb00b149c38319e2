// Command fundctl runs operator tasks against the fund database: backfilling
// cycles and printing ledgers without going through the RPC server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
