// journaldump prints the command journal in sequence order.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ordermatch/domain/orderbook"
	entrywal "ordermatch/infra/wal/entry"
)

func main() {
	dir := flag.String("dir", "data/journal", "journal directory")
	symbol := flag.String("symbol", "", "only print commands for this symbol")
	flag.Parse()

	var n int
	last, err := entrywal.Replay(*dir, func(r *entrywal.Record) error {
		c, err := entrywal.UnmarshalCommand(r.Type, r.Data)
		if err != nil {
			return fmt.Errorf("seq %d: %w", r.Seq, err)
		}
		if *symbol != "" && c.Symbol != *symbol {
			return nil
		}
		n++
		fmt.Println(format(r, c))
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "journaldump: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d records, last seq %d\n", n, last)
}

func format(r *entrywal.Record, c entrywal.Command) string {
	at := time.Unix(0, r.Time).UTC().Format(time.RFC3339Nano)
	switch c.Kind {
	case entrywal.RecordSubmit:
		return fmt.Sprintf("%d %s %s %s order=%d %s %s %s qty=%d limit=%d stop=%d",
			r.Seq, at, c.Kind, c.Symbol, c.OrderID,
			orderbook.Side(c.Side), orderbook.OrderType(c.Type), orderbook.TimeInForce(c.TimeInForce),
			c.Quantity, c.LimitPrice, c.StopPrice)
	case entrywal.RecordCancel:
		return fmt.Sprintf("%d %s %s %s order=%d %s", r.Seq, at, c.Kind, c.Symbol, c.OrderID, orderbook.Side(c.Side))
	default:
		return fmt.Sprintf("%d %s %s %s order=%d", r.Seq, at, c.Kind, c.Symbol, c.OrderID)
	}
}
