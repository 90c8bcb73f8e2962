package cart

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/storage"
)

// StorageKey is the fixed key the cart contents are persisted under.
const StorageKey = "mini-marketplace-cart"

// Entry is one (product snapshot, quantity) pairing in the cart. Quantity is
// always at least 1.
type Entry struct {
	Product  gateway.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Modifiable reports whether the entry can be merged or updated. Entries for
// products without a numeric id cannot be addressed by product id and are
// surfaced to the UI as non-modifiable.
func (e Entry) Modifiable() bool {
	return e.Product.ID != nil
}

// Cart is the client-side shopping cart aggregate. It is independent of the
// session: contents survive login and logout until explicitly cleared.
// Mutations never fail; quantity inputs are clamped. Every change is
// persisted immediately.
type Cart struct {
	store  storage.Store
	logger zerolog.Logger

	lock        sync.Mutex
	entries     []Entry
	subscribers []func([]Entry)
}

// Option defines a function type to modify the Cart instance.
type Option func(*Cart)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cart) {
		c.logger = logger
	}
}

// New creates a cart, reloading any persisted entries verbatim.
func New(store storage.Store, options ...Option) *Cart {
	c := &Cart{
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.loadPersisted()
	return c
}

// AddItem merges quantity into an existing entry for the same product id, or
// appends a new entry. The resulting quantity is clamped to a minimum of 1.
// Products without an id always get their own entry since there is no id to
// merge on.
func (c *Cart) AddItem(product gateway.Product, quantity int) {
	c.lock.Lock()

	merged := false
	if product.ID != nil {
		for i := range c.entries {
			if c.entries[i].Product.ID != nil && *c.entries[i].Product.ID == *product.ID {
				c.entries[i].Quantity = clampQuantity(c.entries[i].Quantity + quantity)
				merged = true
				break
			}
		}
	}
	if !merged {
		c.entries = append(c.entries, Entry{Product: product, Quantity: clampQuantity(quantity)})
	}

	c.persistAndNotifyLocked()
}

// UpdateItemQuantity sets the entry's quantity to max(1, quantity). Entries
// that somehow end at a non-positive quantity are dropped afterwards.
func (c *Cart) UpdateItemQuantity(productID int64, quantity int) {
	c.lock.Lock()

	for i := range c.entries {
		if c.entries[i].Product.ID != nil && *c.entries[i].Product.ID == productID {
			c.entries[i].Quantity = clampQuantity(quantity)
		}
	}

	filtered := c.entries[:0]
	for _, entry := range c.entries {
		if entry.Quantity > 0 {
			filtered = append(filtered, entry)
		}
	}
	c.entries = filtered

	c.persistAndNotifyLocked()
}

// RemoveItem deletes the entry with the given product id.
func (c *Cart) RemoveItem(productID int64) {
	c.lock.Lock()

	filtered := c.entries[:0]
	for _, entry := range c.entries {
		if entry.Product.ID != nil && *entry.Product.ID == productID {
			continue
		}
		filtered = append(filtered, entry)
	}
	c.entries = filtered

	c.persistAndNotifyLocked()
}

// Clear empties the cart, e.g. after a successful checkout.
func (c *Cart) Clear() {
	c.lock.Lock()
	c.entries = nil
	c.persistAndNotifyLocked()
}

// Entries returns a snapshot of the cart contents.
func (c *Cart) Entries() []Entry {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Entry{}, c.entries...)
}

// TotalQuantity is the sum of all entry quantities, recomputed on each call.
func (c *Cart) TotalQuantity() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	total := 0
	for _, entry := range c.entries {
		total += entry.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity over all entries, recomputed
// on each call. A product's zero price contributes zero.
func (c *Cart) TotalPrice() float64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	total := 0.0
	for _, entry := range c.entries {
		total += entry.Product.Price * float64(entry.Quantity)
	}
	return total
}

// Subscribe registers a callback invoked with an entry snapshot after every
// mutation.
func (c *Cart) Subscribe(fn func([]Entry)) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// persistAndNotifyLocked is called with the lock held at the end of every
// mutation; it releases the lock before running subscriber callbacks.
func (c *Cart) persistAndNotifyLocked() {
	raw, err := json.Marshal(c.entries)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to marshal cart state")
	} else if err := c.store.Set(StorageKey, string(raw)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist cart state")
	}

	snapshot := append([]Entry{}, c.entries...)
	subs := append([]func([]Entry){}, c.subscribers...)
	c.lock.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (c *Cart) loadPersisted() {
	raw, err := c.store.Get(StorageKey)
	if err != nil || raw == "" {
		return
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn().Err(err).Msg("failed to parse persisted cart state")
		return
	}
	c.entries = entries
}

func clampQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}
