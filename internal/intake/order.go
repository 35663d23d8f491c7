// Package intake turns an order folder of referral documents into a
// resolved order: text extraction, one language-model completion, then the
// resolution core.
package intake

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxFileBytes skips documents larger than 20 MiB.
const DefaultMaxFileBytes = 20 * 1024 * 1024

// SupportedExtensions lists the document types read from an order folder.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".eml":  true,
	".txt":  true,
}

// Document is one file of an order and its extracted text.
type Document struct {
	Name    string
	Path    string
	Ext     string
	Size    int64
	Content string
}

// Order is a folder of documents named by its order ID.
type Order struct {
	ID        string
	Dir       string
	Documents []Document
}

// LoadOrder lists the supported documents in dir, in name order. Files over
// maxBytes (when positive), directories and unsupported types are skipped.
func LoadOrder(dir string, maxBytes int64) (*Order, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: read order folder %s", dir)
	}

	order := &Order{ID: filepath.Base(filepath.Clean(dir)), Dir: dir}
	log := zap.L().With(zap.String("order_id", order.ID))

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "intake: stat %s", e.Name())
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))

		if maxBytes > 0 && info.Size() > maxBytes {
			log.Warn("skipping oversized document",
				zap.String("file", e.Name()),
				zap.Int64("size", info.Size()),
				zap.Int64("max_bytes", maxBytes))
			continue
		}
		if !SupportedExtensions[ext] {
			log.Warn("skipping unsupported document", zap.String("file", e.Name()))
			continue
		}

		order.Documents = append(order.Documents, Document{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Ext:  ext,
			Size: info.Size(),
		})
	}
	return order, nil
}

// ListOrders returns the order folders directly under root, in name order.
func ListOrders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: read orders root %s", root)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}
