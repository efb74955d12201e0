//go:build ignore

// analyze-captures summarizes a bridge capture file written by
// `acectl bridge --capture-dir`.
//
//	go run tools/analyze-captures.go captures/capture-20260314-092653.jsonl
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/muurk/acectl/internal/bridge"
	"github.com/muurk/acectl/internal/protocol"
)

// pairKey identifies one request/response exchange
type pairKey struct {
	remote string
	num    int
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: analyze-captures <jsonl-file>")
		fmt.Println("Example: analyze-captures captures/capture-20260314-092653.jsonl")
		os.Exit(1)
	}

	filename := os.Args[1]
	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Printf("=== ACE Capture Analyzer ===\n")
	fmt.Printf("File: %s\n\n", filename)

	var (
		records  int
		bad      int
		methods  = map[string]int{}
		requests = map[pairKey]time.Time{}
		latency  []time.Duration
	)

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		var rec bridge.CaptureRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			fmt.Printf("Error parsing line %d: %v\n", line, err)
			continue
		}
		records++

		frame, err := hex.DecodeString(rec.FrameHex)
		if err != nil {
			fmt.Printf("Error decoding hex on line %d: %v\n", line, err)
			continue
		}

		fmt.Printf("#%-4d %s %-13s %s\n", rec.MessageNum, rec.Timestamp.Format("15:04:05.000"), rec.Direction, rec.RemoteAddr)
		fmt.Printf("      %s\n", protocol.Dump(frame))

		key := pairKey{rec.RemoteAddr, rec.MessageNum}
		switch rec.Direction {
		case bridge.DirectionRequest:
			req, err := protocol.DecodeRequest(frame)
			if err != nil {
				bad++
				fmt.Printf("      invalid request: %v\n", err)
				break
			}
			methods[req.Method]++
			requests[key] = rec.Timestamp

		case bridge.DirectionResponse:
			if _, err := protocol.Decode(frame); err != nil {
				bad++
				fmt.Printf("      invalid response: %v\n", err)
			}
			if sent, ok := requests[key]; ok {
				d := rec.Timestamp.Sub(sent)
				latency = append(latency, d)
				fmt.Printf("      answered in %s\n", d.Round(time.Millisecond))
				delete(requests, key)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Frames:      %d\n", records)
	fmt.Printf("Invalid:     %d\n", bad)
	fmt.Printf("Unanswered:  %d\n", len(requests))

	if len(latency) > 0 {
		sort.Slice(latency, func(i, j int) bool { return latency[i] < latency[j] })
		fmt.Printf("Latency:     min %s, median %s, max %s\n",
			latency[0].Round(time.Millisecond),
			latency[len(latency)/2].Round(time.Millisecond),
			latency[len(latency)-1].Round(time.Millisecond))
	}

	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Strings(names)
	fmt.Println("\nMethods:")
	for _, m := range names {
		fmt.Printf("  %-24s %d\n", m, methods[m])
	}
}
