package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"peninsula.dev/transit"
)

var stationsCmd = &cobra.Command{
	Use:   "stations <archive.zip>",
	Short: "Build a schedule from a local archive and list its stations",
	Args:  cobra.ExactArgs(1),
	RunE:  stations,
}

func init() {
	rootCmd.AddCommand(stationsCmd)
}

func stations(cmd *cobra.Command, args []string) error {
	archive, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	schedule, err := transit.BuildSchedule(archive)
	if err != nil {
		return err
	}

	now := time.Now()
	today := now.Year()*10000 + int(now.Month())*100 + now.Day()

	// Count trips running today per station, north to south.
	tripsToday := map[string]int{}
	for _, t := range schedule.Trips {
		if !schedule.Rules.ActiveOn(t.ServiceID, today) {
			continue
		}
		for _, stationID := range schedule.Patterns[t.PatternID] {
			tripsToday[stationID]++
		}
	}

	fmt.Printf("version %s, %d trips, %d patterns\n\n",
		schedule.Meta.Version[:12], len(schedule.Trips), len(schedule.Patterns))
	for _, stationID := range schedule.Order {
		station := schedule.Stations[stationID]
		fmt.Printf("%-24s zone=%-4s stops=%d trips_today=%d\n",
			station.Name, station.Zone, len(station.StopIDs), tripsToday[stationID])
	}

	return nil
}
