// Command client is a manual-testing CLI for the exchange server: it
// connects over TCP, sends one order/cancel/depth-query message, and
// prints every execution/error report the server streams back.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"emberbook/internal/common"
	exchangenet "emberbook/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange server")
	owner := flag.String("owner", "", "owner username (required)")
	action := flag.String("action", "place", "action to perform: place | cancel | depth")

	symbol := flag.String("symbol", "AAPL", "symbol")
	sideStr := flag.String("side", "buy", "buy or sell")
	typeStr := flag.String("type", "limit", "limit, market, ioc, or fok")
	tifStr := flag.String("tif", "gtc", "gtc, day, or gtd")
	gtdSeconds := flag.Int("gtd-seconds", 0, "seconds from now this order expires, for -tif gtd")
	price := flag.String("price", "100.00", "limit price")
	qty := flag.String("qty", "10", "quantity")

	orderID := flag.String("order-id", "", "order id to cancel")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is required.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		msg, err := buildNewOrder(*owner, *symbol, *sideStr, *typeStr, *tifStr, *price, *qty, *gtdSeconds)
		if err != nil {
			log.Fatalf("invalid order: %v", err)
		}
		if _, err := conn.Write(msg.Encode()); err != nil {
			log.Fatalf("failed to send order: %v", err)
		}
		fmt.Printf("-> sent %s %s %s %s @ %s\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr), *qty, *symbol, *price)

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -order-id is required for cancel")
		}
		msg := exchangenet.CancelOrderMessage{OrderID: *orderID}
		if _, err := conn.Write(msg.Encode()); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for %s\n", *orderID)

	case "depth":
		if _, err := conn.Write(exchangenet.EncodeDepthQuery()); err != nil {
			log.Fatalf("failed to send depth query: %v", err)
		}
		fmt.Println("-> sent depth query")

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

func buildNewOrder(owner, symbol, sideStr, typeStr, tifStr, priceStr, qtyStr string, gtdSeconds int) (exchangenet.NewOrderMessage, error) {
	side := common.Buy
	if strings.EqualFold(sideStr, "sell") {
		side = common.Sell
	}

	var orderType common.OrderType
	switch strings.ToLower(typeStr) {
	case "market":
		orderType = common.Market
	case "limit":
		orderType = common.Limit
	case "ioc":
		orderType = common.IOC
	case "fok":
		orderType = common.FOK
	default:
		return exchangenet.NewOrderMessage{}, fmt.Errorf("unknown order type %q", typeStr)
	}

	var tif common.TimeInForce
	var expiry *time.Time
	switch strings.ToLower(tifStr) {
	case "gtc":
		tif = common.GTC
	case "day":
		tif = common.DAY
	case "gtd":
		tif = common.GTD
		t := time.Now().UTC().Add(time.Duration(gtdSeconds) * time.Second)
		expiry = &t
	default:
		return exchangenet.NewOrderMessage{}, fmt.Errorf("unknown time-in-force %q", tifStr)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return exchangenet.NewOrderMessage{}, fmt.Errorf("invalid price: %w", err)
	}
	qty, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return exchangenet.NewOrderMessage{}, fmt.Errorf("invalid quantity: %w", err)
	}

	return exchangenet.NewOrderMessage{
		OrderType: orderType,
		Side:      side,
		TIF:       tif,
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
		Expiry:    expiry,
		Owner:     owner,
	}, nil
}

// readReports continuously decodes Report messages from the server
// and prints them until the connection closes.
func readReports(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			fmt.Printf("\nconnection closed: %v\n", err)
			os.Exit(0)
		}

		report, err := exchangenet.ParseReport(buf[:n])
		if err != nil {
			log.Printf("error parsing report: %v", err)
			continue
		}

		if report.MessageType == exchangenet.ErrorReport {
			fmt.Printf("\n[ERROR] %s\n", report.Err)
			continue
		}

		sideStr := "BUY"
		if report.Side == common.Sell {
			sideStr = "SELL"
		}
		label := "EXECUTION"
		if report.MessageType == exchangenet.RejectReport {
			label = "REJECT"
		}
		fmt.Printf("\n[%s] order=%s side=%s qty=%s price=%s counterparty=%s\n",
			label, report.OrderID, sideStr, report.Quantity.String(), report.Price.String(), report.Counterparty)
	}
}
