// Package store owns the persisted state documents: accounts, resources,
// giveaways, purge protections and promo codes. Each document lives in memory and is
// rewritten in full after every mutation.
//
// The Store is not safe for concurrent use. The registry serializes every
// read-modify-save unit behind its own lock.
package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/goccy/go-json"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// Kind names one of the persisted documents.
type Kind string

const (
	KindAccounts    Kind = "accounts"
	KindResources   Kind = "resources"
	KindGiveaways   Kind = "giveaways"
	KindProtections Kind = "protections"
	KindPromos      Kind = "promos"
)

// Kinds lists every document kind in load order.
var Kinds = []Kind{KindAccounts, KindResources, KindGiveaways, KindProtections, KindPromos}

// FileName returns the on-disk file name of a document kind.
func (k Kind) FileName() string {
	switch k {
	case KindAccounts:
		return "user_database.json"
	case KindResources:
		return "vps_data.json"
	case KindGiveaways:
		return "giveaways.json"
	case KindProtections:
		return "purge_protected.json"
	case KindPromos:
		return "promos.json"
	}
	return string(k) + ".json"
}

// Mirror receives a copy of every document written by Save.
type Mirror interface {
	Mirror(kind string, body []byte)
}

// Store holds the in-memory documents.
type Store struct {
	backend Backend
	mirror  Mirror

	Accounts    *models.AccountsDocument
	Resources   *models.ResourcesDocument
	Giveaways   *models.GiveawaysDocument
	Protections *models.ProtectionsDocument
	Promos      *models.PromosDocument
}

// Option customizes a Store.
type Option func(*Store)

// WithMirror sends every saved document to m.
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// Open creates a Store over backend and loads every document. Missing or
// unreadable documents start from their empty defaults.
func Open(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	for _, kind := range Kinds {
		s.Load(kind)
	}
	return s
}

// Load replaces the in-memory copy of kind with the persisted one, falling
// back to the documented default when the data is missing or corrupt.
func (s *Store) Load(kind Kind) {
	data, err := s.backend.Read(kind)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info(fmt.Sprintf("%s no existe, usando documento vacío", kind.FileName()), "Store")
		s.reset(kind)
		return
	case err != nil:
		logger.Warn(fmt.Sprintf("No se pudo leer %s: %v. Usando documento vacío", kind.FileName(), err), "Store")
		s.reset(kind)
		return
	}

	if err := s.decode(kind, data); err != nil {
		logger.Warn(fmt.Sprintf("%s está corrupto: %v. Usando documento vacío", kind.FileName(), err), "Store")
		s.reset(kind)
		return
	}
	s.normalize(kind)
}

// Save rewrites the whole document. Failures are logged and returned, the
// in-memory copy stays authoritative either way.
func (s *Store) Save(kind Kind) error {
	body, err := s.Encode(kind)
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo serializar %s: %v", kind.FileName(), err), "Store")
		return err
	}

	if err := s.backend.Write(kind, body); err != nil {
		logger.Error(fmt.Sprintf("No se pudo guardar %s: %v", kind.FileName(), err), "Store")
		return err
	}

	if s.mirror != nil {
		s.mirror.Mirror(string(kind), body)
	}
	return nil
}

// Encode returns the current serialized form of a document.
func (s *Store) Encode(kind Kind) ([]byte, error) {
	return json.MarshalIndent(s.document(kind), "", "  ")
}

func (s *Store) document(kind Kind) interface{} {
	switch kind {
	case KindAccounts:
		return s.Accounts
	case KindResources:
		return s.Resources
	case KindGiveaways:
		return s.Giveaways
	case KindProtections:
		return s.Protections
	case KindPromos:
		return s.Promos
	}
	panic(fmt.Sprintf("store: unknown document kind %q", kind))
}

func (s *Store) decode(kind Kind, data []byte) error {
	switch kind {
	case KindAccounts:
		doc := models.NewAccountsDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return err
		}
		s.Accounts = doc
	case KindResources:
		doc := models.NewResourcesDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return err
		}
		s.Resources = doc
	case KindGiveaways:
		doc := models.NewGiveawaysDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return err
		}
		s.Giveaways = doc
	case KindProtections:
		doc := models.NewProtectionsDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return err
		}
		s.Protections = doc
	case KindPromos:
		doc := models.NewPromosDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return err
		}
		s.Promos = doc
	default:
		return fmt.Errorf("store: unknown document kind %q", kind)
	}
	return nil
}

func (s *Store) reset(kind Kind) {
	switch kind {
	case KindAccounts:
		s.Accounts = models.NewAccountsDocument()
	case KindResources:
		s.Resources = models.NewResourcesDocument()
	case KindGiveaways:
		s.Giveaways = models.NewGiveawaysDocument()
	case KindProtections:
		s.Protections = models.NewProtectionsDocument()
	case KindPromos:
		s.Promos = models.NewPromosDocument()
	}
}

// normalize repairs null collections so callers never meet a nil map.
func (s *Store) normalize(kind Kind) {
	switch kind {
	case KindAccounts:
		if s.Accounts.Users == nil {
			s.Accounts.Users = make(map[string]*models.Account)
		}
		for id, acc := range s.Accounts.Users {
			if acc == nil {
				delete(s.Accounts.Users, id)
			}
		}
	case KindResources:
		doc := s.Resources
		if doc.VPS == nil {
			doc.VPS = make(map[string]*models.Resource)
		}
		for id, r := range doc.VPS {
			if r == nil {
				delete(doc.VPS, id)
				continue
			}
			if r.ID == "" {
				r.ID = id
			}
		}
		if doc.Purge.ProtectedVPS == nil {
			doc.Purge.ProtectedVPS = []string{}
		}
		if doc.Purge.ProtectedUsers == nil {
			doc.Purge.ProtectedUsers = []string{}
		}
	case KindGiveaways:
		if s.Giveaways.Giveaways == nil {
			s.Giveaways.Giveaways = make(map[string]*models.Giveaway)
		}
		for id, g := range s.Giveaways.Giveaways {
			if g == nil {
				delete(s.Giveaways.Giveaways, id)
			}
		}
	case KindProtections:
		if s.Protections.Protected == nil {
			s.Protections.Protected = []models.ProtectionRecord{}
		}
	case KindPromos:
		if s.Promos.Promos == nil {
			s.Promos.Promos = make(map[string]*models.Promo)
		}
		for code, p := range s.Promos.Promos {
			if p == nil {
				delete(s.Promos.Promos, code)
			}
		}
	}
}
