// Command walctl inspects and maintains a WAL storage directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hausbus/walstore"
)

var rootCmd = &cobra.Command{
	Use:   "walctl",
	Short: "Inspect and maintain a WAL storage directory",
}

var statusCmd = &cobra.Command{
	Use:   "status <dir>",
	Short: "Print the last commit id, segment range, and snapshot commit ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDriver(args[0])
		if err != nil {
			return err
		}
		defer d.Close()

		sum, err := d.Summary()
		if err != nil {
			return err
		}
		fmt.Printf("last applied:     segment=%d offset=%d\n", sum.LastApplied.Segment, sum.LastApplied.Offset)
		fmt.Printf("segments on disk: %v\n", sum.Segments)
		fmt.Printf("primary snapshot: segment=%d offset=%d\n", sum.PrimarySnapshotID.Segment, sum.PrimarySnapshotID.Offset)
		fmt.Printf("head snapshot:    segment=%d offset=%d\n", sum.HeadSnapshotID.Segment, sum.HeadSnapshotID.Offset)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <dir>",
	Short: "Dump every decoded commit in the log to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := storage.NewOSDir(storageWALPath(args[0]))
		rd := storage.NewReader(dir, storage.ReaderOptions{})
		return rd.ReadFrom(storage.CommitID{}, func(id storage.CommitID, c storage.Commit) error {
			fmt.Printf("segment=%d offset=%d ts=%d ops=%d\n", id.Segment, id.Offset, c.Ts, len(c.Ops))
			return nil
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <dir>",
	Short: "Force a primary snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDriver(args[0])
		if err != nil {
			return err
		}
		defer d.Close()
		return d.Snapshot()
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact <dir>",
	Short: "Force a compaction pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDriver(args[0])
		if err != nil {
			return err
		}
		defer d.Close()
		return d.Compact()
	},
}

func openDriver(path string) (*storage.Driver, error) {
	return storage.Open(storage.NewOSDir(path), storage.Options{
		DisableSnapshotSchedule: true,
		DisableSnapshotOnClose:  true,
	})
}

func storageWALPath(root string) string {
	return root + string(os.PathSeparator) + "wal"
}

func init() {
	rootCmd.AddCommand(statusCmd, replayCmd, snapshotCmd, compactCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
