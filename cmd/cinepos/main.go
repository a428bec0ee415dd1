package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"cinepos/internal/config"
	"cinepos/internal/domain"
	applog "cinepos/internal/log"
	"cinepos/internal/metrics"
	"cinepos/internal/repos"
	"cinepos/internal/services"
	"cinepos/internal/storage"
	"cinepos/internal/validate"
)

const usage = `usage: cinepos <command> [args]

  seed                                   insert demo concessions and a walk-in customer
  seats                                  print the seating chart
  update-seat <id> <class|state>         set NORMAL/VIP or ACTIVE/MAINTENANCE/OUT_OF_SERVICE
  concessions                            list concessions with price and stock
  restock <concessionId> <stock>         replace a concession's stock
  import-seats <file.csv>                add seats not stored yet
  import-concessions <file.csv>          add concessions not stored yet
  export-seats [YYYY-MM-DD]              write the seat map as of a date (default today)
  sell <code|-> <name> <email> <seat,...> [concessionId:qty ...]
  return <saleId>                        return a sale
  sales                                  list sales
  export-sale <saleId>                   write a sale as JSON
  customers                              list customers
  update-customer <code> <name> <email>  change a customer's contact details
  revenue [YYYY-MM-DD]                   revenue for a date (default today)`

type app struct {
	cfg         config.Config
	seats       *services.SeatService
	concessions *services.ConcessionService
	customers   *services.CustomerService
	sales       *services.SaleService
	purchases   *services.PurchaseService
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()
	applog.SetDebug(cfg.Debug)

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	m := metrics.New()
	receipts, err := storage.NewReceipts(cfg.DataDir)
	if err != nil {
		log.Fatal(err)
	}

	seatRepo := repos.NewSeatRepo(db)
	concRepo := repos.NewConcessionRepo(db)
	custRepo := repos.NewCustomerRepo(db)
	saleRepo := repos.NewSaleRepo(db)

	seats := services.NewSeatService(seatRepo, cfg.CacheSize, m)
	concessions := services.NewConcessionService(concRepo, cfg.CacheSize, m)
	customers, err := services.NewCustomerService(custRepo)
	if err != nil {
		log.Fatal(err)
	}
	sales := services.NewSaleService(custRepo, seats, concessions, saleRepo, receipts, m)

	a := &app{
		cfg:         cfg,
		seats:       seats,
		concessions: concessions,
		customers:   customers,
		sales:       sales,
		purchases:   services.NewPurchaseService(seats, concessions, customers, sales),
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	if cmd == "seed" {
		runErr = repos.SeedDemo(ctx, db)
	} else {
		runErr = a.run(ctx, cmd, args)
	}

	if err := m.WriteFile(cfg.MetricsFile); err != nil {
		applog.Error("metrics.write", err, map[string]any{"file": cfg.MetricsFile})
	}
	if runErr != nil {
		applog.Error("cmd."+cmd, runErr, map[string]any{"args": args})
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "seats":
		return a.printSeats(ctx)
	case "update-seat":
		if len(args) != 2 {
			return fmt.Errorf("update-seat needs <id> <class|state>")
		}
		return a.updateSeat(ctx, args[0], args[1])
	case "concessions":
		all, err := a.concessions.FindAll(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.Deleted() {
				continue
			}
			fmt.Printf("%-12s %-16s %-6s %8s  stock %d\n", c.ID, c.Name, c.Concession.Category, c.Price.StringFixed(2), c.Concession.Stock)
		}
	case "restock":
		if len(args) != 2 {
			return fmt.Errorf("restock needs <concessionId> <stock>")
		}
		id, ok := validate.ID(args[0])
		if !ok {
			return fmt.Errorf("bad concession %q", args[0])
		}
		stock, err := strconv.Atoi(args[1])
		if err != nil || stock < 0 {
			return fmt.Errorf("bad stock %q", args[1])
		}
		p, err := a.concessions.SetStock(ctx, id, stock)
		if err != nil {
			return err
		}
		fmt.Printf("%s stock %d\n", p.ID, p.Concession.Stock)
	case "import-seats":
		if len(args) != 1 {
			return fmt.Errorf("import-seats needs a file")
		}
		saved, err := a.seats.ImportCSV(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d seats imported\n", len(saved))
	case "import-concessions":
		if len(args) != 1 {
			return fmt.Errorf("import-concessions needs a file")
		}
		saved, err := a.concessions.ImportCSV(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d concessions imported\n", len(saved))
	case "export-seats":
		date, ok := validate.Date(optional(args, 0))
		if !ok {
			return fmt.Errorf("bad date %q", args[0])
		}
		path, err := a.seats.ExportJSON(ctx, a.cfg.DataDir, date)
		if err != nil {
			return err
		}
		fmt.Println(path)
	case "sell":
		return a.sell(ctx, args)
	case "return":
		if len(args) != 1 {
			return fmt.Errorf("return needs a sale id")
		}
		sale, err := a.sales.ReturnSale(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("sale %s returned, %s refunded\n", sale.ID, sale.Total().StringFixed(2))
	case "sales":
		all, err := a.sales.FindAll(ctx)
		if err != nil {
			return err
		}
		for _, s := range all {
			state := "live"
			if s.IsDeleted {
				state = "returned"
			}
			fmt.Printf("%s  %s  %-6s %8s  %s\n", s.ID, s.PurchaseDate.Format("2006-01-02"), s.Customer.MembershipCode, s.Total().StringFixed(2), state)
		}
	case "export-sale":
		if len(args) != 1 {
			return fmt.Errorf("export-sale needs a sale id")
		}
		path, err := a.sales.ExportJSON(ctx, args[0], a.cfg.DataDir)
		if err != nil {
			return err
		}
		fmt.Println(path)
	case "customers":
		all, err := a.customers.List(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			fmt.Printf("%-6s %-15s %s\n", c.MembershipCode, c.Name, c.Email)
		}
	case "update-customer":
		if len(args) != 3 {
			return fmt.Errorf("update-customer needs <code> <name> <email>")
		}
		c, err := a.customers.UpdateContact(ctx, args[0], domain.Contact{Name: args[1], Email: args[2]})
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", c.MembershipCode, c.Name, c.Email)
	case "revenue":
		date, ok := validate.Date(optional(args, 0))
		if !ok {
			return fmt.Errorf("bad date %q", args[0])
		}
		total, err := a.sales.RevenueByDate(ctx, date)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", date.Format("2006-01-02"), total.StringFixed(2))
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

// sell runs one purchase: reserve seats, add concessions, confirm. Any error
// before confirmation cancels the purchase.
func (a *app) sell(ctx context.Context, args []string) (err error) {
	if len(args) < 4 {
		return fmt.Errorf("sell needs <code|-> <name> <email> <seat,...>")
	}
	contact := contactFrom(args[0], args[1], args[2])

	p := a.purchases.Begin()
	defer func() {
		if err != nil && len(p.Lines()) > 0 {
			_ = p.Cancel(ctx)
		}
	}()

	for _, raw := range strings.Split(args[3], ",") {
		id, ok := validate.SeatID(raw)
		if !ok {
			return fmt.Errorf("bad seat %q", raw)
		}
		if _, err := p.SelectSeat(ctx, id); err != nil {
			return err
		}
	}
	for _, item := range args[4:] {
		rawID, rawQty, _ := strings.Cut(item, ":")
		id, ok := validate.ID(rawID)
		if !ok {
			return fmt.Errorf("bad concession %q", item)
		}
		qty := 1
		if rawQty != "" {
			if qty, ok = validate.Qty(rawQty); !ok {
				return fmt.Errorf("bad quantity %q, want 1..%d", item, validate.MaxQty)
			}
		}
		if _, err := p.AddConcession(ctx, id, qty); err != nil {
			return err
		}
	}

	sale, err := p.Confirm(ctx, contact)
	if err != nil {
		return err
	}
	fmt.Printf("sale %s for %s: %s\n", sale.ID, sale.Customer.MembershipCode, sale.Total().StringFixed(2))
	return nil
}

// updateSeat accepts either a class or a state, in English or Spanish.
func (a *app) updateSeat(ctx context.Context, rawID, value string) error {
	id, ok := validate.SeatID(rawID)
	if !ok {
		return fmt.Errorf("bad seat %q", rawID)
	}
	var (
		seat domain.Product
		err  error
	)
	if class, ok := storage.ParseClass(value); ok {
		seat, err = a.seats.SetClass(ctx, id, class)
	} else if state, ok := storage.ParseState(value); ok {
		seat, err = a.seats.SetState(ctx, id, state)
	} else {
		return fmt.Errorf("%q is neither a seat class nor a state", value)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s %s %s %s\n", seat.ID, seat.Seat.Class, seat.Seat.State, seat.Price.StringFixed(2))
	return nil
}

func (a *app) printSeats(ctx context.Context) error {
	all, err := a.seats.FindAll(ctx)
	if err != nil {
		return err
	}
	row := -1
	for _, s := range all {
		if s.Seat.Row != row {
			if row >= 0 {
				fmt.Println()
			}
			row = s.Seat.Row
		}
		mark := "."
		switch {
		case s.Seat.State != domain.SeatActive:
			mark = "x"
		case s.Seat.Occupancy == domain.OccupancySold:
			mark = "#"
		case s.Seat.Occupancy == domain.OccupancyReserved:
			mark = "r"
		case s.Seat.Class == domain.SeatVIP:
			mark = "v"
		}
		fmt.Printf("%s%s ", s.ID, mark)
	}
	fmt.Println()
	return nil
}

// contactFrom treats "-" as "no membership code yet".
func contactFrom(code, name, email string) domain.Contact {
	c := domain.Contact{Name: name, Email: email}
	if code != "-" {
		c.MembershipCode = code
	}
	return c
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
