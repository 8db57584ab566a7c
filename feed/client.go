package feed

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mktplane/tradecore/types"
)

// MarketDataFeedClient is the destination a Client republishes parsed
// events to - in production the security registry's feed-facing API, in
// tests an in-memory recorder.
type MarketDataFeedClient interface {
	AddOrder(security types.Security, disseminatingMarket, mpid types.MarketCode, isPrimary bool, orderReference string, side types.Side, price types.Money, size int64, timestamp time.Time)
	OffsetOrderSize(orderReference string, delta int64, timestamp time.Time)
	DeleteOrder(orderReference string, timestamp time.Time)
	PublishTimeAndSale(security types.Security, timeAndSale types.TimeAndSale)
}

// ProtocolReader is the transport the Client reads fixed-record messages
// from. Read returns io.EOF on clean stream end.
type ProtocolReader interface {
	Read() (Message, error)
}

// Config configures how a Client interprets and tags parsed messages.
type Config struct {
	PrimaryMarket       types.MarketCode
	DisseminatingMarket types.MarketCode
	MPID                types.MarketCode
	Country             string
	IsTimeAndSaleFeed   bool
}

type orderEntry struct {
	security types.Security
	price    types.Money
}

// Client parses a Chia-style fixed-record feed and republishes typed events
// to a MarketDataFeedClient. It owns exactly one ProtocolReader and runs a
// single read loop for the lifetime of the open/close cycle.
type Client struct {
	config   Config
	feed     MarketDataFeedClient
	protocol ProtocolReader

	mu           sync.Mutex
	orderEntries map[string]orderEntry

	openOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient constructs a Client. Open must be called to start its read
// loop.
func NewClient(config Config, feedClient MarketDataFeedClient, protocol ProtocolReader) *Client {
	return &Client{
		config:       config,
		feed:         feedClient,
		protocol:     protocol,
		orderEntries: make(map[string]orderEntry),
		done:         make(chan struct{}),
	}
}

// Open starts the read loop in a goroutine. Calling Open more than once is
// a no-op.
func (c *Client) Open() {
	c.openOnce.Do(func() {
		go c.readLoop()
	})
}

// Close waits for the read loop to exit; it does not stop the loop itself.
// The read loop stops when the protocol reader returns io.EOF or another
// error, so the protocol reader should be closed by its owner for Read to
// unblock. Close blocks indefinitely if Open was never called.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		<-c.done
	})
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		message, err := c.protocol.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("feed read loop terminated by parse error")
			return
		}
		c.dispatch(message)
	}
}

func (c *Client) dispatch(message Message) {
	switch message.Type {
	case 'A':
		c.handleAddOrder(false, message)
	case 'a':
		c.handleAddOrder(true, message)
	case 'E':
		c.handleExecution(false, message)
	case 'e':
		c.handleExecution(true, message)
	case 'X':
		c.handleCancel(false, message)
	case 'x':
		c.handleCancel(true, message)
	case 'P', 'M':
		c.handleTrade(false, message)
	case 'p', 'm':
		c.handleTrade(true, message)
	default:
		log.Warn().Str("type", string(message.Type)).Msg("unrecognized feed message type")
	}
}

func (c *Client) handleAddOrder(longForm bool, message Message) {
	cur := newCursor(message.Data)
	orderRef := itoa(cur.parseNumeric(9))
	side := cur.parseSide()
	var shares int64
	if longForm {
		shares = cur.parseNumeric(10)
	} else {
		shares = cur.parseNumeric(6)
	}
	symbol := cur.parseAlphanumeric(6)
	price := cur.parsePrice(longForm)
	display := cur.parseChar()
	if display != 'Y' {
		return
	}
	security := types.Security{Symbol: symbol, Market: c.config.PrimaryMarket, Country: c.config.Country}
	c.feed.AddOrder(security, c.config.DisseminatingMarket, c.config.MPID, false, orderRef, side, price, shares, message.Timestamp)
	if c.config.IsTimeAndSaleFeed {
		c.mu.Lock()
		c.orderEntries[orderRef] = orderEntry{security: security, price: price}
		c.mu.Unlock()
	}
}

func (c *Client) handleExecution(longForm bool, message Message) {
	cur := newCursor(message.Data)
	orderRef := itoa(cur.parseNumeric(9))
	var shares int64
	if longForm {
		shares = cur.parseNumeric(10)
	} else {
		shares = cur.parseNumeric(6)
	}
	cur.parseNumeric(9) // trade reference, unused
	cur.parseNumeric(9) // contra order reference, unused
	c.feed.OffsetOrderSize(orderRef, -shares, message.Timestamp)
	if !c.config.IsTimeAndSaleFeed {
		return
	}
	c.mu.Lock()
	entry, ok := c.orderEntries[orderRef]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.feed.PublishTimeAndSale(entry.security, types.TimeAndSale{
		Timestamp: message.Timestamp,
		Price:     entry.price,
		Size:      types.Quantity(shares),
		Condition: "@",
	})
}

func (c *Client) handleCancel(_ bool, message Message) {
	cur := newCursor(message.Data)
	orderRef := itoa(cur.parseNumeric(9))
	c.feed.DeleteOrder(orderRef, message.Timestamp)
}

func (c *Client) handleTrade(longForm bool, message Message) {
	cur := newCursor(message.Data)
	cur.parseNumeric(9) // order reference, unused: trade carries its own symbol/price
	cur.parseChar()     // side indicator, informational only
	var shares int64
	if longForm {
		shares = cur.parseNumeric(10)
	} else {
		shares = cur.parseNumeric(6)
	}
	symbol := cur.parseAlphanumeric(6)
	price := cur.parsePrice(longForm)
	cur.parseNumeric(9) // trade reference
	cur.parseNumeric(9) // contra order reference
	cur.parseChar()     // trade type
	security := types.Security{Symbol: symbol, Market: c.config.PrimaryMarket, Country: c.config.Country}
	c.feed.PublishTimeAndSale(security, types.TimeAndSale{
		Timestamp: message.Timestamp,
		Price:     price,
		Size:      types.Quantity(shares),
		Condition: "@",
	})
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
