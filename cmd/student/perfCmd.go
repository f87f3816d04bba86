package student

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dRec/cmd/util"
	"github.com/ValentinKolb/dRec/lib/record"
	"github.com/ValentinKolb/dRec/rpc/client"
	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dRec servers",
		Long:    "Runs insert, find, update, list and mixed benchmarks against a server. Every thread uses its own connection, all records created by the benchmark are deleted afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNamePrefix  = "__perf"
	perfNumThreads  = 10
	perfRecordCount = 100
	perfSkip        = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. insert,list)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads (and connections) to use for the benchmark"))
	key = "records"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many records to prepare for the find and update tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfRecordCount = max(viper.GetInt("records"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("Performance testing tool for dRec servers")

	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	clients, err := newClientPool(ctx, config, perfNumThreads)
	if err != nil {
		return err
	}
	defer clients.close(ctx)

	ids, err := prepareRecords(ctx)
	if err != nil {
		return err
	}
	defer cleanupRecords(ctx, "prepared", ids)

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	bench := func(name string, op func(c *client.RecordClient, i int) error) {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(name) {
				return
			}
			// goroutines without a free connection wait in acquire
			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				c := clients.acquire()
				defer clients.release(c)
				for i := 0; pb.Next(); i++ {
					if err := op(c, i); err != nil {
						log.Printf("(%s) - error: %v\n", name, err)
					}
				}
			})
		})
		results[name] = result
		printResult(name, result)
	}

	var inserted []int64
	var insertedLock sync.Mutex
	bench("insert", func(c *client.RecordClient, i int) error {
		rec, err := c.Insert(ctx, perfRecord(i))
		if err != nil {
			return err
		}
		insertedLock.Lock()
		inserted = append(inserted, rec.ID)
		insertedLock.Unlock()
		return nil
	})
	cleanupRecords(ctx, "insert", inserted)

	bench("find", func(c *client.RecordClient, i int) error {
		_, err := c.Find(ctx, ids[i%len(ids)])
		return err
	})

	bench("find-missing", func(c *client.RecordClient, i int) error {
		_, err := c.Find(ctx, 0)
		if client.IsCode(err, common.CodeIDNotExist) {
			return nil
		}
		return err
	})

	bench("update", func(c *client.RecordClient, i int) error {
		_, err := c.Update(ctx, ids[i%len(ids)], record.Draft{Gpa: record.Some(float64(i%5) * 0.8)})
		return err
	})

	bench("list", func(c *client.RecordClient, _ int) error {
		_, err := c.List(ctx)
		return err
	})

	// 80% reads, 15% updates, 5% lists
	bench("mixed", func(c *client.RecordClient, i int) error {
		var err error
		switch r := i % 20; {
		case r == 0:
			_, err = c.List(ctx)
		case r < 4:
			_, err = c.Update(ctx, ids[i%len(ids)], record.Draft{Major: record.Some("Mixed")})
		default:
			_, err = c.Find(ctx, ids[i%len(ids)])
		}
		return err
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

func perfRecord(i int) record.Record {
	return record.Record{
		Name:  fmt.Sprintf("%s-%d", perfNamePrefix, i),
		Dob:   record.MustDate("2000-01-01"),
		Gpa:   float64(i%5) * 0.8,
		Sex:   record.Sexes[i%len(record.Sexes)],
		Major: "Benchmarking",
	}
}

// prepareRecords inserts the records used by the read and update tests
func prepareRecords(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, perfRecordCount)
	for i := 0; i < perfRecordCount; i++ {
		rec, err := rpcClient.Insert(ctx, perfRecord(i))
		if err != nil {
			cleanupRecords(ctx, "prepared", ids)
			return nil, fmt.Errorf("failed to prepare records: %w", err)
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func cleanupRecords(ctx context.Context, test string, ids []int64) {
	for _, id := range ids {
		if err := rpcClient.Delete(ctx, id); err != nil {
			log.Printf("(%s) - error deleting record %d: %v\n", test, id, err)
		}
	}
}

// clientPool hands out one connection per benchmark goroutine
type clientPool struct {
	clients chan *client.RecordClient
	opened  atomic.Int32
}

func newClientPool(ctx context.Context, config common.ClientConfig, size int) (*clientPool, error) {
	p := &clientPool{clients: make(chan *client.RecordClient, size)}
	for i := 0; i < size; i++ {
		c, err := client.Dial(ctx, config.Endpoint, config.Timeout)
		if err != nil {
			p.close(ctx)
			return nil, err
		}
		p.opened.Add(1)
		p.clients <- c
	}
	return p, nil
}

func (p *clientPool) acquire() *client.RecordClient {
	return <-p.clients
}

func (p *clientPool) release(c *client.RecordClient) {
	p.clients <- c
}

func (p *clientPool) close(ctx context.Context) {
	for p.opened.Load() > 0 {
		c := <-p.clients
		_ = c.Quit(ctx)
		p.opened.Add(-1)
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "Timeout", "Threads", "Records",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			config.Timeout.String(),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfRecordCount),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
