// Package config loads the K*Wall configuration file (spec §3/§6): a flat
// key=value text format with \xHHHH / \xHHHHHHHH code-point escapes. The
// format has no natural fit among the retrieval pack's structured-config
// libraries (it is neither YAML nor TOML), so it is hand-parsed with
// bufio.Scanner — the one ambient concern in this repository built on the
// standard library alone; see DESIGN.md for why no pack library serves it.
package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kwall/kwall/internal/codepoint"
	"github.com/kwall/kwall/internal/confusables"
	"github.com/kwall/kwall/internal/driver"
	"github.com/kwall/kwall/internal/scorer"
	"github.com/kwall/kwall/internal/strip"
	"github.com/kwall/kwall/internal/substitute"
)

const (
	minThreads = 1
	maxThreads = 64
	maxGroups  = 8
)

// Config is the fully parsed, immutable configuration (spec §3). Tables and
// compiled regexes are frozen for the dispatcher's lifetime once Load
// returns.
type Config struct {
	Threads         int
	IgnoreStart     int
	Encoding        codepoint.Encoding
	Skeletonize     bool
	StripSets       strip.Sets
	Substitutions   substitute.Tables
	Confusables     confusables.Map
	Slots           [scorer.NumSlots]scorer.Slot
	Groups          []driver.FilterGroup
	ConfusableExtra []confusables.Entry
}

// Load reads and validates the configuration file at path. Any error it
// returns is fatal for startup per spec §7; a per-slot malformed regex
// that fails to compile is not fatal — it is logged and the slot is left
// inert, per spec §4.5/§8 scenario 7.
func Load(path string, logger *log.Logger) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: BadKey, Key: path, Err: err}
	}
	defer f.Close()

	raw, err := parseRaw(f)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Encoding: codepoint.Unknown}

	if v, ok := raw["threads"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &Error{Kind: BadKey, Key: "threads", Err: err}
		}
		cfg.Threads = clamp(n, minThreads, maxThreads)
	} else {
		cfg.Threads = minThreads
	}

	if v, ok := raw["ignore_start"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &Error{Kind: BadKey, Key: "ignore_start", Err: err}
		}
		cfg.IgnoreStart = n
	}

	if v, ok := raw["encoding"]; ok {
		enc, err := parseEncoding(v)
		if err != nil {
			return nil, &Error{Kind: BadKey, Key: "encoding", Err: err}
		}
		cfg.Encoding = enc
	}

	if v, ok := raw["skeletonize"]; ok {
		cfg.Skeletonize = parseBool(v)
	}

	punct, err := decodeRuneSet(raw, "strip_punctuation")
	if err != nil {
		return nil, err
	}
	ws, err := decodeRuneSet(raw, "strip_whitespace")
	if err != nil {
		return nil, err
	}
	cfg.StripSets = strip.NewSets(punct, ws)

	utfPairs, err := loadPairs(raw, "utf_from", "utf_to")
	if err != nil {
		return nil, err
	}
	deobPairs, err := loadPairs(raw, "deob_from", "deob_to")
	if err != nil {
		return nil, err
	}
	cfg.Substitutions = substitute.Tables{UTF: utfPairs, Deob: deobPairs}

	slots, err := loadSlots(raw, logger)
	if err != nil {
		return nil, err
	}
	cfg.Slots = slots

	groups, err := loadGroups(raw)
	if err != nil {
		return nil, err
	}
	cfg.Groups = groups

	extra, err := loadConfusables(raw)
	if err != nil {
		return nil, err
	}
	cfg.ConfusableExtra = extra
	cfg.Confusables = confusables.NewDefaultMap(cfg.ConfusableExtra)

	return cfg, nil
}

// parseRaw tokenizes the key=value text format: blank lines and lines
// starting with '#' are ignored, everything else must be key=value.
func parseRaw(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		idx := strings.IndexByte(text, '=')
		if idx < 0 {
			return nil, &Error{Kind: BadKey, Line: line, Key: text, Err: fmt.Errorf("missing '='")}
		}
		key := strings.TrimSpace(text[:idx])
		value := strings.TrimSpace(text[idx+1:])
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Kind: BadKey, Err: err}
	}
	return out, nil
}

func parseEncoding(v string) (codepoint.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "utf8", "utf-8":
		return codepoint.UTF8, nil
	case "utf16le", "utf-16le":
		return codepoint.UTF16LE, nil
	case "utf16be", "utf-16be":
		return codepoint.UTF16BE, nil
	case "utf32le", "utf-32le":
		return codepoint.UTF32LE, nil
	case "utf32be", "utf-32be":
		return codepoint.UTF32BE, nil
	case "unknown", "":
		return codepoint.Unknown, nil
	default:
		return codepoint.Unknown, fmt.Errorf("unrecognized encoding %q", v)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// decodeRuneSet reads a single raw string value (with escapes) and returns
// its individual code points as an unordered set source. The spec's
// "strip_punctuationN"/"strip_whitespaceN" stray-index bug (§9) is not
// reproduced here: only the bare key name is read.
func decodeRuneSet(raw map[string]string, key string) ([]rune, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	seq, err := decodeValue(v)
	if err != nil {
		return nil, &Error{Kind: BadHex, Key: key, Err: err}
	}
	return []rune(seq), nil
}

// loadPairs reads an ordered <fromPrefix>N/<toPrefix>N series (N starting
// at 1, stopping at the first missing N) into substitution pairs,
// preserving configuration order.
func loadPairs(raw map[string]string, fromPrefix, toPrefix string) ([]substitute.Pair, error) {
	var pairs []substitute.Pair
	for i := 1; ; i++ {
		fromKey := fmt.Sprintf("%s%d", fromPrefix, i)
		toKey := fmt.Sprintf("%s%d", toPrefix, i)
		fromRaw, ok := raw[fromKey]
		if !ok {
			break
		}
		toRaw := raw[toKey]

		from, err := decodeValue(fromRaw)
		if err != nil {
			return nil, &Error{Kind: BadHex, Key: fromKey, Err: err}
		}
		to, err := decodeValue(toRaw)
		if err != nil {
			return nil, &Error{Kind: BadHex, Key: toKey, Err: err}
		}
		if len(from) == 0 {
			// An empty "from" can never match; config-load drops it
			// rather than letting it become a no-op scan in the hot path.
			continue
		}
		pairs = append(pairs, substitute.Pair{From: from, To: to})
	}
	return pairs, nil
}

// loadSlots reads regexN/weightN pairs for N in [1,16]. A pattern that
// fails to compile is logged as a warning and leaves that slot inert,
// rather than aborting config load: spec §4.5/§8 scenario 7 requires a
// malformed regex to degrade gracefully at scoring time, and the same
// tolerance is extended to config-load so one bad pattern cannot prevent
// the dispatcher from starting at all.
func loadSlots(raw map[string]string, logger *log.Logger) ([scorer.NumSlots]scorer.Slot, error) {
	var slots [scorer.NumSlots]scorer.Slot
	for i := 0; i < scorer.NumSlots; i++ {
		patternKey := fmt.Sprintf("regex%d", i+1)
		weightKey := fmt.Sprintf("weight%d", i+1)

		pattern, ok := raw[patternKey]
		if !ok || pattern == "" {
			continue
		}
		weight := 0
		if w, ok := raw[weightKey]; ok {
			n, err := strconv.Atoi(w)
			if err != nil {
				return slots, &Error{Kind: BadKey, Key: weightKey, Err: err}
			}
			weight = n
		}

		slot, err := scorer.CompileSlot(pattern, weight)
		if err != nil {
			if logger != nil {
				logger.Warn("slot failed to compile, leaving inert", "slot", i, "pattern", pattern, "error", err)
			}
			continue
		}
		slots[i] = slot
	}
	return slots, nil
}

// loadConfusables reads an ordered confusable_fromN/confusable_toN series
// (N starting at 1, stopping at the first missing N), letting an operator
// extend the built-in seed table from the configuration file without
// touching Go source, per SPEC_FULL.md §2.3.
func loadConfusables(raw map[string]string) ([]confusables.Entry, error) {
	var extra []confusables.Entry
	for i := 1; ; i++ {
		fromKey := fmt.Sprintf("confusable_from%d", i)
		toKey := fmt.Sprintf("confusable_to%d", i)
		fromRaw, ok := raw[fromKey]
		if !ok {
			break
		}
		toRaw := raw[toKey]

		from, err := decodeValue(fromRaw)
		if err != nil {
			return nil, &Error{Kind: BadHex, Key: fromKey, Err: err}
		}
		to, err := decodeValue(toRaw)
		if err != nil {
			return nil, &Error{Kind: BadHex, Key: toKey, Err: err}
		}
		if len(from) == 0 {
			continue
		}
		extra = append(extra, confusables.Entry{From: from, To: to})
	}
	return extra, nil
}

// loadGroups reads protocolN/ipN/portN for N in [1,8].
func loadGroups(raw map[string]string) ([]driver.FilterGroup, error) {
	var groups []driver.FilterGroup
	for i := 1; i <= maxGroups; i++ {
		protoKey := fmt.Sprintf("protocol%d", i)
		ipKey := fmt.Sprintf("ip%d", i)
		portKey := fmt.Sprintf("port%d", i)

		proto, ok := raw[protoKey]
		if !ok {
			continue
		}
		ipStr, ok := raw[ipKey]
		if !ok {
			return nil, &Error{Kind: BadIP, Key: ipKey, Err: fmt.Errorf("missing")}
		}
		if net.ParseIP(ipStr) == nil {
			return nil, &Error{Kind: BadIP, Key: ipKey, Err: fmt.Errorf("invalid IP %q", ipStr)}
		}

		port := 0
		if p, ok := raw[portKey]; ok && p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, &Error{Kind: BadKey, Key: portKey, Err: err}
			}
			port = n
		}

		groups = append(groups, driver.FilterGroup{Protocol: proto, IP: ipStr, Port: port})
	}
	return groups, nil
}
