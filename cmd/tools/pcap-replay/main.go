//go:build pcap
// +build pcap

// Package main replays captured sensor UDP traffic from a PCAP file to a
// running estimator daemon. Frames can be paced by their capture timestamps
// to reproduce the original sensor timing, or blasted as fast as possible
// for regression runs.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/attitude.report/internal/sensorio"
)

func main() {
	pcapFile := flag.String("pcap", "", "Path to PCAP file (required)")
	udpPort := flag.Int("port", 14550, "UDP port the capture used for sensor frames")
	target := flag.String("target", "127.0.0.1:14550", "Destination address for replayed frames")
	realtime := flag.Bool("realtime", true, "Pace frames by capture timestamps")
	validate := flag.Bool("validate", false, "Check frame headers and report counts per kind without sending")
	flag.Parse()

	if *pcapFile == "" {
		fmt.Fprintln(os.Stderr, "Error: PCAP file is required")
		flag.Usage()
		os.Exit(1)
	}

	handle, err := pcap.OpenOffline(*pcapFile)
	if err != nil {
		log.Fatalf("Failed to open PCAP file %s: %v", *pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", *udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		log.Fatalf("Failed to set BPF filter %q: %v", filterStr, err)
	}
	log.Printf("PCAP BPF filter set: %s", filterStr)

	var conn *net.UDPConn
	if !*validate {
		raddr, err := net.ResolveUDPAddr("udp", *target)
		if err != nil {
			log.Fatalf("Failed to resolve target %s: %v", *target, err)
		}
		conn, err = net.DialUDP("udp", nil, raddr)
		if err != nil {
			log.Fatalf("Failed to dial target %s: %v", *target, err)
		}
		defer conn.Close()
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	var (
		packetCount int
		sentCount   int
		badFrames   int
		kindCounts  = make(map[sensorio.Kind]int)
		lastCapture time.Time
		startTime   = time.Now()
	)

	for packet := range packetSource.Packets() {
		packetCount++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		payload := udp.Payload

		// Replaying faster than capture would defeat the estimator's rate
		// limiting, so sleep out the inter-packet gap when pacing.
		captureTime := packet.Metadata().Timestamp
		if *realtime && !lastCapture.IsZero() {
			if gap := captureTime.Sub(lastCapture); gap > 0 {
				time.Sleep(gap)
			}
		}
		lastCapture = captureTime

		kind, valid := inspectFrame(payload)
		if !valid {
			badFrames++
		} else {
			kindCounts[kind]++
		}

		if conn != nil {
			if _, err := conn.Write(payload); err != nil {
				log.Fatalf("Failed to send frame: %v", err)
			}
			sentCount++
		}

		if packetCount%10000 == 0 {
			elapsed := time.Since(startTime)
			log.Printf("Replay progress: %d packets in %v (%.0f pkt/s)",
				packetCount, elapsed, float64(packetCount)/elapsed.Seconds())
		}
	}

	elapsed := time.Since(startTime)
	log.Printf("Replay complete: %d packets, %d sent, %d malformed in %v", packetCount, sentCount, badFrames, elapsed)
	for kind, count := range kindCounts {
		log.Printf("  %s: %d frames", kind, count)
	}
}

// inspectFrame checks the frame header against the sensor wire format and
// returns the frame kind.
func inspectFrame(frame []byte) (sensorio.Kind, bool) {
	if len(frame) < sensorio.HeaderSize {
		return 0, false
	}
	if binary.LittleEndian.Uint16(frame[0:2]) != sensorio.FrameMagic {
		return 0, false
	}
	if frame[2] != sensorio.FrameVersion {
		return 0, false
	}
	return sensorio.Kind(frame[3]), true
}
