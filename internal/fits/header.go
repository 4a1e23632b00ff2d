package fits

import (
	"fmt"
	"math"
	"strconv"
)

// BlockSize is the FITS padding unit for header and data regions.
const BlockSize = 2880

// Header holds the value cards of one HDU in file order.
type Header struct {
	Cards []Card
	// Commentary keeps COMMENT, HISTORY and blank-keyword text.
	Commentary []string
}

func (h Header) Len() int {
	return len(h.Cards)
}

// Get returns the first card with the given key.
func (h Header) Get(key string) (Card, bool) {
	for _, c := range h.Cards {
		if c.Key == key {
			return c, true
		}
	}
	return Card{}, false
}

func (h Header) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

func (h Header) Float(key string) (float64, bool) {
	c, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	return c.Value.Number()
}

// Int returns a numeric card truncated to int. Non-integral values fail.
func (h Header) Int(key string) (int, bool) {
	f, ok := h.Float(key)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int(f), true
}

func (h Header) String(key string) (string, bool) {
	c, ok := h.Get(key)
	if !ok {
		return "", false
	}
	return c.Value.Text()
}

func (h Header) Bool(key string) (bool, bool) {
	c, ok := h.Get(key)
	if !ok {
		return false, false
	}
	return c.Value.Bool()
}

func (h Header) FloatOr(key string, def float64) float64 {
	if v, ok := h.Float(key); ok {
		return v
	}
	return def
}

func (h Header) IntOr(key string, def int) int {
	if v, ok := h.Int(key); ok {
		return v
	}
	return def
}

func (h Header) StringOr(key, def string) string {
	if v, ok := h.String(key); ok {
		return v
	}
	return def
}

// MustInt is Int with an error naming the missing or invalid keyword.
func (h Header) MustInt(key string) (int, error) {
	if v, ok := h.Int(key); ok {
		return v, nil
	}
	return 0, fmt.Errorf("missing or invalid %s", key)
}

func indexedKey(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}

// scanHeader reads cards from start until END. It returns the header and the
// exact number of bytes consumed including the END card.
func scanHeader(c *Cursor, start, maxCards int) (Header, int, error) {
	if err := c.Seek(start); err != nil {
		return Header{}, 0, err
	}
	var h Header
	for i := 0; ; i++ {
		if i >= maxCards {
			return Header{}, 0, fmt.Errorf("%w: no END within %d cards", ErrCardLimit, maxCards)
		}
		if c.Remaining() < CardSize {
			return Header{}, 0, fmt.Errorf("%w: header at %d ends after %d cards", ErrNoEndCard, start, i)
		}
		raw, err := c.ReadBytes(CardSize)
		if err != nil {
			return Header{}, 0, err
		}
		card, kind := ParseCard(raw)
		switch kind {
		case CardEnd:
			return h, (i + 1) * CardSize, nil
		case CardValue:
			h.Cards = append(h.Cards, card)
		case CardCommentary:
			h.Commentary = append(h.Commentary, card.Comment)
		case CardSkipped:
		}
	}
}

// alignBlock rounds n up to the next multiple of BlockSize.
func alignBlock(n int) int {
	rem := n % BlockSize
	if rem == 0 {
		return n
	}
	return n + (BlockSize - rem)
}
