package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"platoo/storefront/internal/checkout"
	"platoo/storefront/internal/config"
	"platoo/storefront/internal/container"
	"platoo/storefront/internal/domain"
	"platoo/storefront/internal/health"
	"platoo/storefront/internal/queue"
	"platoo/storefront/internal/service"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: storefront [-config file] [-user id] <command> [args]

commands:
  cart                      load and show the cart
  set <line> <quantity>     set a line's quantity (minimum 1)
  change <line> <delta>     change a line's quantity by delta
  remove <line>             remove a line
  quote                     show pricing for the cart
  stage [restaurant]        stage the cart for checkout
  state                     show the checkout state
  place <address> <phone>   submit the staged order
  confirm                   read the placed order back
  cancel                    clear the checkout
  history [limit]           list placed orders
  watch                     follow checkout changes
  ping                      probe backend services
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	userID := flag.String("user", os.Getenv("PLATOO_USER_ID"), "user id owning the cart")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// .env is optional, real environment wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("⚠️ Failed to read .env: %v", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("⚠️ Unknown log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize container with all dependencies
	app, err := container.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer app.Close()

	if err := run(ctx, app, *userID, flag.Args()); err != nil {
		log.Errorf("❌ %s failed: %v", flag.Arg(0), err)
		app.Close()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, app *container.Container, userID string, args []string) error {
	command, args := args[0], args[1:]

	if command == "ping" {
		results := app.Probe(ctx)
		printProbe(results)
		if !health.AllReachable(results) {
			return errors.New("some services are unreachable")
		}
		return nil
	}

	svc := app.Session(userID)

	switch command {
	case "cart":
		snapshot, err := svc.LoadCart(ctx)
		printCart(snapshot)
		return err

	case "set", "change":
		if len(args) != 2 {
			return fmt.Errorf("%s needs <line> <number>", command)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", args[1], err)
		}
		if _, err := svc.LoadCart(ctx); err != nil {
			return err
		}

		var snapshot domain.CartSnapshot
		if command == "set" {
			snapshot, err = svc.SetQuantity(ctx, args[0], n)
		} else {
			snapshot, err = svc.ChangeQuantity(ctx, args[0], n)
		}
		printCart(snapshot)
		return err

	case "remove":
		if len(args) != 1 {
			return errors.New("remove needs <line>")
		}
		if _, err := svc.LoadCart(ctx); err != nil {
			return err
		}
		snapshot, err := svc.RemoveItem(ctx, args[0])
		printCart(snapshot)
		return err

	case "quote":
		if _, err := svc.LoadCart(ctx); err != nil {
			return err
		}
		snapshot, breakdown := svc.Quote()
		printCart(snapshot)
		printPricing(breakdown)
		return nil

	case "stage":
		restaurantID := ""
		if len(args) > 0 {
			restaurantID = args[0]
		}
		if _, err := svc.LoadCart(ctx); err != nil {
			return err
		}
		payload, err := svc.ProceedToCheckout(ctx, restaurantID)
		if err != nil {
			return err
		}
		fmt.Printf("staged %d lines, submission key %s\n", len(payload.Lines), payload.SubmissionKey)
		printPricing(payload.Pricing)
		return nil

	case "state":
		st, err := svc.CheckoutState(ctx)
		if err != nil {
			return err
		}
		fmt.Println(st)
		return nil

	case "place":
		if len(args) != 2 {
			return errors.New("place needs <address> <phone>")
		}
		orderID, err := svc.PlaceOrder(ctx, args[0], args[1])
		if err != nil {
			if !checkout.IsPrecondition(err) {
				fmt.Println("order not placed, checkout is still staged: run place again to retry")
			}
			return err
		}
		fmt.Printf("order %s placed\n", orderID)
		return nil

	case "confirm":
		order, err := svc.ConfirmOrder(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("order %s: %s\n", order.OrderID, order.Status)
		return nil

	case "cancel":
		return svc.CancelCheckout(ctx)

	case "history":
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[0], err)
			}
			limit = n
		}
		orders, err := svc.OrderHistory(ctx, limit)
		if err != nil {
			return err
		}
		for _, order := range orders {
			fmt.Printf("%s  %s  %-10s %s\n", order.CreatedAt.Format("2006-01-02 15:04"), order.OrderID, order.Status, order.Pricing.Total)
		}
		return nil

	case "watch":
		err := svc.Watch(ctx, "$", func(msg queue.Message) {
			fmt.Printf("%s  %-9s session=%s %s\n", msg.ID, msg.Event.Action, msg.Event.SessionID, msg.Event.OrderID)
		})
		if errors.Is(err, service.ErrNoFeed) {
			return errors.New("watch needs checkout.notify enabled")
		}
		return err

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printCart(snapshot domain.CartSnapshot) {
	if snapshot.IsEmpty() {
		fmt.Println("cart is empty")
		return
	}
	for _, line := range snapshot.Lines {
		fmt.Printf("%-8s %-30s %3d x %8s = %8s\n", line.ID, line.Name, line.Quantity, line.UnitPrice.StringFixed(2), line.LineTotal().StringFixed(2))
	}
}

func printPricing(p domain.PricingBreakdown) {
	fmt.Printf("subtotal      %10s\n", p.Subtotal.StringFixed(2))
	fmt.Printf("delivery fee  %10s\n", p.DeliveryFee.StringFixed(2))
	fmt.Printf("tax           %10s\n", p.Tax.StringFixed(2))
	fmt.Printf("total         %10s\n", p.Total.StringFixed(2))
}

func printProbe(results []health.Result) {
	for _, result := range results {
		status := "down"
		if result.Reachable {
			status = "up"
		}
		fmt.Printf("%-8s %-4s %s %s\n", result.Name, status, result.URL, result.Latency)
	}
}
