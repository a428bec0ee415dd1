package storage

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"cinepos/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	purchaseDir = "compras"
	returnDir   = "devoluciones"
)

// Receipts renders purchase and return receipts under a base directory.
type Receipts struct {
	dir    string
	engine *html.Engine
}

func NewReceipts(dir string) (*Receipts, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("%w: templates: %v", ErrStore, err)
	}
	return &Receipts{dir: dir, engine: engine}, nil
}

// PurchasePath is where the purchase receipt of s lives.
func (r *Receipts) PurchasePath(s domain.Sale) string {
	return filepath.Join(r.dir, purchaseDir, receiptName(s))
}

func (r *Receipts) ReturnPath(s domain.Sale) string {
	return filepath.Join(r.dir, returnDir, receiptName(s))
}

// WritePurchase renders the purchase receipt and returns its path. names maps
// product ids to display names; missing ids print as the id.
func (r *Receipts) WritePurchase(s domain.Sale, names map[string]string) (string, error) {
	path := r.PurchasePath(s)
	return path, r.render(path, "purchase", binding(s, names, "Entrada de cine"))
}

// WriteReturn renders the return receipt and drops the purchase receipt.
func (r *Receipts) WriteReturn(s domain.Sale, names map[string]string, on time.Time) (string, error) {
	path := r.ReturnPath(s)
	b := binding(s, names, "Devolucion de entrada")
	b["ReturnedOn"] = on.Format("02-01-2006")
	if err := r.render(path, "return", b); err != nil {
		return "", err
	}
	if err := os.Remove(r.PurchasePath(s)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return path, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return path, nil
}

func (r *Receipts) render(path, name string, data fiber.Map) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := r.engine.Render(f, name, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: render %s: %v", ErrStore, name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func binding(s domain.Sale, names map[string]string, title string) fiber.Map {
	lines := make([]fiber.Map, 0, len(s.Lines))
	for _, l := range s.Lines {
		product := l.ProductID
		if n, ok := names[l.ProductID]; ok && n != "" {
			product = n
		}
		lines = append(lines, fiber.Map{
			"Product":   product,
			"Kind":      string(l.ProductKind),
			"Quantity":  l.Quantity,
			"UnitPrice": l.UnitPrice.StringFixed(2),
			"Subtotal":  l.Subtotal().StringFixed(2),
		})
	}
	return fiber.Map{
		"Title":          title,
		"SaleID":         s.ID,
		"CustomerName":   s.Customer.Name,
		"CustomerEmail":  s.Customer.Email,
		"MembershipCode": s.Customer.MembershipCode,
		"Date":           s.PurchaseDate.Format("02-01-2006"),
		"Lines":          lines,
		"Total":          s.Total().StringFixed(2),
	}
}

// receiptName is entrada_<seats>_<code>_<dd-MM-yyyy>.html.
func receiptName(s domain.Sale) string {
	seats := strings.Join(s.SeatIDs(), "-")
	if seats == "" {
		seats = s.ID
	}
	return fmt.Sprintf("entrada_%s_%s_%s.html", seats, s.Customer.MembershipCode, s.PurchaseDate.Format("02-01-2006"))
}
