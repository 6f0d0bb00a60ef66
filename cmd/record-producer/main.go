package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/demonlist-ranking/internal/kafka"
)

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "demonlist-submissions", "Kafka topic")
	input := flag.String("input", "-", "JSON-lines file of submissions (- for stdin)")
	rate := flag.Int("rate", 0, "Messages per second (0 = unlimited)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Demonlist Record Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  Input:            %s\n", *input)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	var reader io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		reader = f
	}

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	// Handle producer errors and successes
	var successCount, errorCount, skippedCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var throttle <-chan time.Time
	if *rate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(*rate))
		defer ticker.Stop()
		throttle = ticker.C
	}

	scanner := bufio.NewScanner(reader)
	line := 0
	interrupted := false

loop:
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		// Validate locally so the consumer only sees well-formed submissions
		submission, err := kafka.DecodeSubmission([]byte(raw))
		if err != nil {
			atomic.AddInt64(&skippedCount, 1)
			log.Printf("Skipping line %d: %v", line, err)
			continue
		}
		data, err := json.Marshal(submission)
		if err != nil {
			atomic.AddInt64(&skippedCount, 1)
			log.Printf("Failed to marshal line %d: %v", line, err)
			continue
		}

		if throttle != nil {
			select {
			case <-throttle:
			case <-sigChan:
				interrupted = true
				break loop
			}
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.UserID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-sigChan:
			interrupted = true
			break loop
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Failed to read input: %v", err)
	}
	if interrupted {
		fmt.Println("\n\nShutting down...")
	}

	producer.AsyncClose()
	wg.Wait()
	fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d, Skipped: %d\n",
		atomic.LoadInt64(&successCount),
		atomic.LoadInt64(&errorCount),
		atomic.LoadInt64(&skippedCount),
	)
}
