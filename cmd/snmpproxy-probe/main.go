// snmpproxy-probe issues a request through a running snmpproxy instance,
// using the community-as-hostname routing convention, and prints the
// returned varbinds. Intended for smoke-testing a deployment.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

func main() {
	proxyAddr := flag.String("proxy", "127.0.0.1:161", "Proxy address (host:port)")
	target := flag.String("target", "", "Backend routing label, a DNS name or address (required)")
	index := flag.String("index", "", "Optional context suffix, e.g. vlan10")
	oids := flag.String("oids", "1.3.6.1.2.1.1.1.0", "Comma-separated OIDs to query")
	op := flag.String("op", "get", "Operation: get, getnext, or getbulk")
	timeout := flag.Int("timeout", 5, "Client timeout in seconds")
	retries := flag.Int("retries", 1, "Client retries")
	maxRepetitions := flag.Int("max-repetitions", 10, "Max repetitions for getbulk")
	flag.Parse()

	if *target == "" {
		log.Fatalf("-target is required")
	}

	host, portStr, err := net.SplitHostPort(*proxyAddr)
	if err != nil {
		log.Fatalf("Invalid proxy address %q: %v", *proxyAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		log.Fatalf("Invalid proxy port %q", portStr)
	}

	community := *target
	if *index != "" {
		community += "@" + *index
	}

	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      uint16(port),
		Version:   gosnmp.Version2c,
		Community: community,
		Timeout:   time.Duration(*timeout) * time.Second,
		Retries:   *retries,
	}
	if err := client.Connect(); err != nil {
		log.Fatalf("Could not connect to proxy: %v", err)
	}
	defer client.Conn.Close()

	oidList := strings.Split(*oids, ",")
	for i := range oidList {
		oidList[i] = strings.TrimSpace(oidList[i])
	}

	var result *gosnmp.SnmpPacket
	switch *op {
	case "get":
		result, err = client.Get(oidList)
	case "getnext":
		result, err = client.GetNext(oidList)
	case "getbulk":
		result, err = client.GetBulk(oidList, 0, uint32(*maxRepetitions))
	default:
		log.Fatalf("Unknown operation %q (want get, getnext, or getbulk)", *op)
	}
	if err != nil {
		log.Fatalf("Query via %s failed: %v", *proxyAddr, err)
	}

	if result.Error != gosnmp.NoError {
		log.Printf("Response error-status: %v (index %d)", result.Error, result.ErrorIndex)
	}
	for _, variable := range result.Variables {
		fmt.Printf("%s = %s: %v\n", variable.Name, variable.Type, variable.Value)
	}
}
