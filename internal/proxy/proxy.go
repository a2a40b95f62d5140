// Package proxy implements the caching SNMPv2c proxy: it accepts requests
// whose community string names the backend to query, forwards them with the
// real backend community, and caches responses.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bkochergin/snmp-proxy/internal/backend"
	"github.com/bkochergin/snmp-proxy/internal/cache"
	"github.com/bkochergin/snmp-proxy/internal/codec"
	"github.com/bkochergin/snmp-proxy/internal/routing"
	"github.com/bkochergin/snmp-proxy/internal/stats"
)

const maxDatagramSize = 65536

// Config carries the proxy's runtime parameters.
type Config struct {
	ListenAddr       string
	Port             int
	BackendCommunity string
	BackendTimeout   time.Duration
	BackendRetries   int
	CacheTTL         time.Duration
}

// Proxy owns the ingress socket, the response cache, and the background
// evictor.
type Proxy struct {
	cfg      Config
	cache    *cache.Cache
	client   *backend.Client
	resolver *routing.Resolver

	conn    *net.UDPConn
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	hits     atomic.Uint64
	misses   atomic.Uint64
	timeouts atomic.Uint64
}

func New(cfg Config, resolver *routing.Resolver) *Proxy {
	return &Proxy{
		cfg:      cfg,
		cache:    cache.New(cfg.CacheTTL),
		client:   &backend.Client{Timeout: cfg.BackendTimeout, Retries: cfg.BackendRetries},
		resolver: resolver,
	}
}

// Start binds the ingress socket and launches the receive loop and the
// cache evictor. It returns once the socket is bound.
func (p *Proxy) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("proxy already running")
	}

	addr := net.UDPAddr{
		Port: p.cfg.Port,
		IP:   net.ParseIP(p.cfg.ListenAddr),
	}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		p.running.Store(false)
		return fmt.Errorf("failed to listen on port %d: %w", p.cfg.Port, err)
	}
	if err := setSocketOptions(conn); err != nil {
		conn.Close()
		p.running.Store(false)
		return fmt.Errorf("failed to set socket options: %w", err)
	}
	p.conn = conn

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(2)
	go p.serve(ctx)
	go p.runEvictor(ctx)

	log.Printf("Listening for SNMPv2c requests on %s", conn.LocalAddr())
	return nil
}

// Stop shuts down the listener and waits for in-flight requests and the
// evictor to finish.
func (p *Proxy) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.cancel()
	p.conn.Close()
	p.wg.Wait()
	log.Printf("Proxy stopped")
}

// LocalAddr returns the bound ingress address, or nil before Start.
func (p *Proxy) LocalAddr() net.Addr {
	if p.conn == nil {
		return nil
	}
	return p.conn.LocalAddr()
}

// StatsSnapshot returns current counter values for the stats reporter.
func (p *Proxy) StatsSnapshot() stats.Snapshot {
	return stats.Snapshot{
		CacheEntries:    p.cache.Len(),
		CacheHits:       p.hits.Load(),
		CacheMisses:     p.misses.Load(),
		BackendTimeouts: p.timeouts.Load(),
	}
}

func (p *Proxy) serve(ctx context.Context) {
	defer p.wg.Done()

	buffer := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Short read deadline so shutdown is observed promptly.
		p.conn.SetReadDeadline(time.Now().Add(1 * time.Second))

		n, remoteAddr, err := p.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if p.running.Load() {
				log.Printf("Error reading from listener: %v", err)
				continue
			}
			return
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])

		p.wg.Add(1)
		go func(addr *net.UDPAddr) {
			defer p.wg.Done()
			p.handlePacket(ctx, packet, addr)
		}(remoteAddr)
	}
}

// handlePacket runs the full request state machine for one ingress
// datagram.
func (p *Proxy) handlePacket(ctx context.Context, packet []byte, client *net.UDPAddr) {
	request, err := codec.Parse(packet)
	if err != nil || !request.IsRequest() {
		// Malformed datagrams and unsolicited responses are dropped without
		// a reply.
		recordRequest("dropped")
		return
	}

	backendHost := request.Community()
	key := cache.Key{
		BackendHost:    backendHost,
		Community:      p.cfg.BackendCommunity,
		CommunityIndex: request.CommunityIndex(),
		PDUType:        request.PDUType(),
		Data:           string(request.Data()),
	}

	if cached, ok := p.cache.Lookup(key, time.Now()); ok {
		p.hits.Add(1)
		recordRequest("cache_hit")
		response := request.Clone()
		response.SetPDUType(codec.GetResponse)
		response.SetData(cached)
		p.send(response.Serialize(), client)
		return
	}
	p.misses.Add(1)
	recordRequest("cache_miss")

	// The real community goes on the wire toward the backend, with the
	// client's context suffix re-attached.
	request.SetCommunity(p.cfg.BackendCommunity + request.CommunityIndex())

	endpoint, err := p.resolver.Resolve(backendHost)
	if err != nil {
		log.Printf("Could not resolve backend %q: %v", backendHost, err)
		recordRequest("resolve_error")
		return
	}

	start := time.Now()
	reply, err := p.client.Query(ctx, endpoint, request.Serialize())
	if err != nil {
		if errors.Is(err, backend.ErrTimeout) {
			p.timeouts.Add(1)
			recordRequest("backend_timeout")
			p.respondResourceUnavailable(request, key, backendHost, client)
			return
		}
		log.Printf("Backend query to %s failed: %v", endpoint, err)
		recordRequest("backend_error")
		return
	}
	recordBackendLatency(methodName(request.PDUType()), time.Since(start).Seconds())

	response, err := codec.Parse(reply)
	if err != nil {
		// An unparseable reply is passed through untouched and never
		// cached.
		recordRequest("forwarded_raw")
		p.send(reply, client)
		return
	}

	p.cache.Insert(key, response.Data(), time.Now())
	cacheEntries.Set(float64(p.cache.Len()))
	recordRequest("forwarded")

	response.SetCommunity(backendHost)
	p.send(response.Serialize(), client)
}

// respondResourceUnavailable synthesizes and caches the timeout response.
// Caching it keeps a dead backend from being hammered for a full TTL.
func (p *Proxy) respondResourceUnavailable(request *codec.Message, key cache.Key, backendHost string, client *net.UDPAddr) {
	response := request.Clone()
	response.SetPDUType(codec.GetResponse)
	response.SetError(codec.ErrStatusResourceUnavailable)
	p.cache.Insert(key, response.Data(), time.Now())
	cacheEntries.Set(float64(p.cache.Len()))

	response.SetCommunity(backendHost)
	p.send(response.Serialize(), client)
}

func (p *Proxy) send(datagram []byte, client *net.UDPAddr) {
	if _, err := p.conn.WriteToUDP(datagram, client); err != nil {
		log.Printf("Error sending response to %s: %v", client, err)
	}
}

// runEvictor sweeps the cache every TTL period. The hot path already
// evicts entries it touches; the sweep releases memory for keys that are
// never queried again.
func (p *Proxy) runEvictor(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.CacheTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := p.cache.SweepExpired(time.Now())
			if evicted > 0 {
				log.Printf("Evicted %d stale cache entries", evicted)
				evictionsTotal.Add(float64(evicted))
			}
			cacheEntries.Set(float64(p.cache.Len()))
		}
	}
}

func methodName(pduType byte) string {
	switch pduType {
	case codec.GetRequest:
		return "get"
	case codec.GetNextRequest:
		return "getnext"
	case codec.GetBulkRequest:
		return "getbulk"
	default:
		return "other"
	}
}

// setSocketOptions sizes the ingress socket buffers for burst traffic and
// enables SO_REUSEPORT where available.
func setSocketOptions(conn *net.UDPConn) error {
	file, err := conn.File()
	if err != nil {
		return err
	}
	defer file.Close()

	fd := int(file.Fd())
	// Fd switches the shared socket to blocking mode, which would stop the
	// listener's read deadlines from firing; switch it back.
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("failed to restore non-blocking mode: %w", err)
	}

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, 256*1024); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, 256*1024); err != nil {
		return fmt.Errorf("failed to set SO_SNDBUF: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, int(unix.SO_REUSEPORT), 1); err != nil {
		log.Printf("Warning: SO_REUSEPORT not available: %v", err)
	}

	return nil
}
