/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// doorshark: pet-door-specific poor man's tshark. Reassembles the TCP
// streams of a capture file and dumps the framed JSON commands.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cespare/xxhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/olekukonko/tablewriter"

	"github.com/facebook/petdoor/protocol"
)

// for flags

// MultiTag is a wrapper around []string to parse a command tag filter
// from flags
type MultiTag []string

// Set adds a tag to the filter
func (m *MultiTag) Set(tag string) error {
	*m = append(*m, strings.ToUpper(tag))
	return nil
}

// String returns joined list of tags
func (m *MultiTag) String() string {
	return strings.Join(*m, ",")
}

// Allows reports whether the tag passes the filter. An empty filter
// passes everything.
func (m *MultiTag) Allows(tag string) bool {
	if len(*m) == 0 {
		return true
	}
	for _, t := range *m {
		if t == tag {
			return true
		}
	}
	return false
}

// packetHandle abstracts packet handles provided by pcapgo.Reader and pcapgo.NGReader
type packetHandle interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// flow is one direction of one TCP connection, with its own framer so
// commands split or merged across segments still come out whole.
type flow struct {
	src, dst string
	framer   *protocol.Framer
}

func flowKey(src, dst string) uint64 {
	return xxhash.Sum64String(src + ">" + dst)
}

// tagOf digs the command tag out of a decoded frame. PING/PONG frames
// have no carrier key.
func tagOf(frame []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(frame, &obj); err != nil {
		return ""
	}
	for _, key := range []string{protocol.FieldCmd, protocol.FieldConfig} {
		if raw, ok := obj[key]; ok {
			var tag string
			if json.Unmarshal(raw, &tag) == nil {
				return tag
			}
		}
	}
	if _, ok := obj[protocol.FieldPing]; ok {
		return protocol.FieldPing
	}
	if _, ok := obj[protocol.FieldPong]; ok {
		return protocol.FieldPong
	}
	return ""
}

func run(input string, port int, filter MultiTag) error {
	var handle packetHandle
	var err error

	// open the input file
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	// try NGReader, if it fails - fall back to Reader
	handle, err = pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		if _, ierr := f.Seek(0, 0); ierr != nil {
			return fmt.Errorf("seeking in %s: %w", input, ierr)
		}
		handle, err = pcapgo.NewReader(f)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", input, err)
		}
	}

	flows := map[uint64]*flow{}
	counts := map[string]int{}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range packetSource.Packets() {
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		tcp, _ := tcpLayer.(*layers.TCP)
		if int(tcp.SrcPort) != port && int(tcp.DstPort) != port {
			continue
		}
		if len(tcp.Payload) == 0 {
			continue
		}

		var srcIP, dstIP net.IP
		if ip6Layer := packet.Layer(layers.LayerTypeIPv6); ip6Layer != nil {
			ip, _ := ip6Layer.(*layers.IPv6)
			srcIP = ip.SrcIP
			dstIP = ip.DstIP
		} else if ip4Layer := packet.Layer(layers.LayerTypeIPv4); ip4Layer != nil {
			ip, _ := ip4Layer.(*layers.IPv4)
			srcIP = ip.SrcIP
			dstIP = ip.DstIP
		} else {
			continue
		}

		src := net.JoinHostPort(srcIP.String(), strconv.Itoa(int(tcp.SrcPort)))
		dst := net.JoinHostPort(dstIP.String(), strconv.Itoa(int(tcp.DstPort)))
		key := flowKey(src, dst)
		fl, ok := flows[key]
		if !ok {
			fl = &flow{src: src, dst: dst, framer: protocol.NewFramer()}
			flows[key] = fl
		}

		frames, ferr := fl.framer.Feed(tcp.Payload)
		for _, frame := range frames {
			tag := tagOf(frame)
			if tag == "" || !filter.Allows(tag) {
				continue
			}
			counts[tag]++
			var decoded map[string]interface{}
			if err := json.Unmarshal(frame, &decoded); err != nil {
				continue
			}
			spew.Printf("%s -> %s %s\n", fl.src, fl.dst, tag)
			spew.Dump(decoded)
			spew.Println()
		}
		if ferr != nil {
			log.Warningf("flow %s -> %s: %v, resetting", fl.src, fl.dst, ferr)
			fl.framer = protocol.NewFramer()
		}
	}

	// summary of what the capture carried
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Command", "Count"})
	for _, tag := range tags {
		table.Append([]string{tag, strconv.Itoa(counts[tag])})
	}
	table.Render()
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "doorshark: dumps pet door commands parsed from a capture file to stdout.\nUsage:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "%s [file]\n", os.Args[0])
		fmt.Fprint(flag.CommandLine.Output(), "where [file] is any .pcap or .pcapng packet capture\n")
		flag.PrintDefaults()
	}
	var tags MultiTag
	var port int
	flag.Var(&tags, "tag", "Only print certain command tags, e.g. OPEN or GET_SETTINGS. Repeat for multiple")
	flag.IntVar(&port, "port", protocol.Port, "TCP port the door traffic runs on")
	flag.Parse()
	if len(flag.Args()) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(flag.Arg(0), port, tags); err != nil {
		log.Fatal(err)
	}
}
