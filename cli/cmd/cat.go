package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/avroplan/container"
	"golang.org/x/sync/errgroup"
)

var catWorkers int

// catCmd represents the cat command
var catCmd = &cobra.Command{
	Use:   "cat [file]",
	Short: "Decode a container file to JSON lines",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		checkErr(err)
		defer f.Close()
		reader, err := container.NewReader(cmd.Context(), f)
		checkErr(err)
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		if catWorkers > 1 {
			checkErr(catParallel(reader, w))
			return
		}
		enc := json.NewEncoder(w)
		for {
			value, err := reader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			checkErr(err)
			checkErr(enc.Encode(value))
		}
	},
}

// catParallel decodes batches of blocks concurrently. Each block gets its
// own decoder; output order matches file order.
func catParallel(r *container.Reader, w io.Writer) error {
	done := false
	for !done {
		blocks := []*container.Block{}
		for len(blocks) < catWorkers {
			block, err := r.NextBlock()
			if errors.Is(err, io.EOF) {
				done = true
				break
			}
			if err != nil {
				return err
			}
			blocks = append(blocks, block)
		}
		results := make([][]byte, len(blocks))
		g := errgroup.Group{}
		for i, block := range blocks {
			g.Go(func() error {
				values, err := r.DecodeBlock(block)
				if err != nil {
					return err
				}
				buf := &bytes.Buffer{}
				enc := json.NewEncoder(buf)
				for _, value := range values {
					if err := enc.Encode(value); err != nil {
						return fmt.Errorf("failed to encode record: %w", err)
					}
				}
				results[i] = buf.Bytes()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, result := range results {
			if _, err := w.Write(result); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.PersistentFlags().IntVar(&catWorkers, "workers", 1, "number of blocks to decode concurrently")
}
