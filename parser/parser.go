package parser

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pcap-analysis-api/config"
)

// CaptureStats holds the generated statistics for one capture file. The
// numbers are pseudo-random but deterministic for a given file name, so the
// demo produces stable output across reruns.
type CaptureStats struct {
	FileName             string             `json:"file_name"`
	Format               string             `json:"format"`
	PacketCount          int                `json:"packet_count"`
	TotalBytes           int                `json:"total_bytes"`
	DurationSeconds      float64            `json:"duration_seconds"`
	ProtocolDistribution map[string]float64 `json:"protocol_distribution"`
	TopTalkers           []Talker           `json:"top_talkers"`
	Anomalies            []string           `json:"anomalies"`
	SIPSessions          int                `json:"sip_sessions"`
	RTPStreams           int                `json:"rtp_streams"`
}

// Talker is one endpoint pair with its share of the traffic.
type Talker struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Port        int     `json:"port"`
	Packets     int     `json:"packets"`
	Percent     float64 `json:"percent"`
}

var protocolOrder = []string{"TCP", "UDP", "DNS", "HTTP", "TLS", "ICMP", "ARP", "Other"}

var anomalyPool = []string{
	"Repeated TCP retransmissions between the two busiest endpoints",
	"Burst of DNS queries with no matching responses",
	"TLS handshake failures (alert level fatal) on port 443",
	"Out-of-order RTP sequence numbers on one media stream",
	"SYN packets with no completed handshake toward a single host",
	"ICMP destination-unreachable replies clustered mid-capture",
	"Unusually large UDP datagrams close to the MTU",
	"One-way audio pattern: RTP flowing in a single direction only",
	"Duplicate SIP INVITE retransmissions before a 200 OK",
	"Gratuitous ARP announcements from two distinct MAC addresses",
}

// ValidateFileName accepts .pcap/.pcapng names independent of content.
func ValidateFileName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".pcap" && ext != ".pcapng" {
		return fmt.Errorf("unsupported file type %q: only .pcap and .pcapng files are accepted", ext)
	}
	return nil
}

// DetectFormat sniffs the capture magic number. The result is a label only;
// an unrecognized payload is still analyzed.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return "unknown"
	}
	magic := binary.BigEndian.Uint32(data[:4])
	switch magic {
	case 0x0a0d0d0a:
		return "pcapng"
	case 0xa1b2c3d4, 0xd4c3b2a1:
		return "pcap"
	case 0xa1b23c4d, 0x4d3cb2a1:
		return "pcap (nanosecond)"
	}
	return "unknown"
}

// Summarize generates mock statistics for a capture. No packets are decoded;
// everything is derived from a generator seeded with the file name so the same
// name always yields the same report.
func Summarize(fileName string, data []byte) *CaptureStats {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(fileName)))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	voip := looksLikeVoIP(fileName)

	stats := &CaptureStats{
		FileName:        fileName,
		Format:          DetectFormat(data),
		PacketCount:     500 + rng.Intn(49500),
		DurationSeconds: round1(5 + rng.Float64()*595),
	}
	stats.TotalBytes = stats.PacketCount * (80 + rng.Intn(700))
	stats.ProtocolDistribution = protocolDistribution(rng, voip)
	stats.TopTalkers = topTalkers(rng, stats.PacketCount, voip)
	stats.Anomalies = pickAnomalies(rng, voip)

	if voip {
		stats.SIPSessions = 1 + rng.Intn(8)
		stats.RTPStreams = stats.SIPSessions * 2
	}

	return stats
}

// Snippet renders the stats as the plain-text excerpt sent to the LLM, in the
// style of a packet list with a preamble.
func (s *CaptureStats) Snippet() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Capture file: %s (format: %s)\n", s.FileName, s.Format)
	fmt.Fprintf(&b, "Packets: %d, bytes: %d, duration: %.1fs\n", s.PacketCount, s.TotalBytes, s.DurationSeconds)

	b.WriteString("Protocol distribution:\n")
	for _, proto := range sortedKeys(s.ProtocolDistribution) {
		fmt.Fprintf(&b, "  %-8s %5.1f%%\n", proto, s.ProtocolDistribution[proto])
	}

	b.WriteString("Top talkers:\n")
	for _, t := range s.TopTalkers {
		label := config.WellKnownPorts[t.Port]
		if label == "" {
			label = "unknown"
		}
		fmt.Fprintf(&b, "  %s -> %s:%d (%s) %d packets (%.1f%%)\n",
			t.Source, t.Destination, t.Port, label, t.Packets, t.Percent)
	}

	if s.SIPSessions > 0 {
		fmt.Fprintf(&b, "VoIP: %d SIP sessions, %d RTP streams (ports %d-%d)\n",
			s.SIPSessions, s.RTPStreams, config.RTPPortRange[0], config.RTPPortRange[1])
	}

	if len(s.Anomalies) > 0 {
		b.WriteString("Observed anomalies:\n")
		for _, a := range s.Anomalies {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}

	sampleTime := time.Duration(float64(time.Second) * s.DurationSeconds / 2).Truncate(time.Millisecond)
	fmt.Fprintf(&b, "Sample packet: No.%d %s %s -> %s TCP len=%d\n",
		s.PacketCount/2, sampleTime, s.TopTalkers[0].Source, s.TopTalkers[0].Destination, 512)

	return b.String()
}

func looksLikeVoIP(name string) bool {
	n := strings.ToLower(name)
	for _, hint := range []string{"sip", "rtp", "voip", "call", "voice"} {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}

func protocolDistribution(rng *rand.Rand, voip bool) map[string]float64 {
	protos := protocolOrder
	if voip {
		protos = append([]string{"SIP", "RTP", "RTCP"}, protos...)
	}

	weights := make([]float64, len(protos))
	total := 0.0
	for i := range protos {
		w := 0.05 + rng.Float64()
		// VoIP captures are dominated by media traffic
		if voip && (protos[i] == "RTP" || protos[i] == "SIP") {
			w += 1.5
		}
		weights[i] = w
		total += w
	}

	dist := make(map[string]float64, len(protos))
	sum := 0.0
	largest := protos[0]
	for i, proto := range protos {
		pct := round1(weights[i] / total * 100)
		dist[proto] = pct
		sum += pct
		if pct > dist[largest] {
			largest = proto
		}
	}
	// Rounding drift lands on the largest bucket so the shares total 100.
	dist[largest] = round1(dist[largest] + 100 - sum)
	return dist
}

func topTalkers(rng *rand.Rand, packets int, voip bool) []Talker {
	ports := []int{443, 80, 53, 123, 8080}
	if voip {
		ports = []int{5060, evenInRange(rng, config.RTPPortRange), 5061, 53, 443}
	}

	n := 3 + rng.Intn(3)
	if n > len(ports) {
		n = len(ports)
	}
	talkers := make([]Talker, 0, n)
	remaining := packets
	for i := 0; i < n; i++ {
		share := remaining / (2 + rng.Intn(4))
		talkers = append(talkers, Talker{
			Source:      fmt.Sprintf("10.%d.%d.%d", rng.Intn(32), rng.Intn(256), 1+rng.Intn(254)),
			Destination: fmt.Sprintf("192.168.%d.%d", rng.Intn(256), 1+rng.Intn(254)),
			Port:        ports[i],
			Packets:     share,
			Percent:     round1(float64(share) / float64(packets) * 100),
		})
		remaining -= share
	}
	sort.Slice(talkers, func(i, j int) bool { return talkers[i].Packets > talkers[j].Packets })
	return talkers
}

func pickAnomalies(rng *rand.Rand, voip bool) []string {
	n := rng.Intn(4) // zero is a valid outcome
	picked := make([]string, 0, n)
	seen := make(map[int]bool)
	for len(picked) < n {
		i := rng.Intn(len(anomalyPool))
		if seen[i] {
			continue
		}
		if !voip && strings.Contains(anomalyPool[i], "RTP") {
			continue
		}
		if !voip && strings.Contains(anomalyPool[i], "SIP") {
			continue
		}
		seen[i] = true
		picked = append(picked, anomalyPool[i])
	}
	return picked
}

func evenInRange(rng *rand.Rand, r [2]int) int {
	p := r[0] + rng.Intn(r[1]-r[0])
	if p%2 != 0 {
		p++
	}
	return p
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
