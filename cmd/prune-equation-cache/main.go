package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/eqcache"
)

func main() {
	var (
		doDelete    bool
		doRemove    bool
		report      bool
		days        int
		from        int
		accessDates bool
		modifyDates bool
		dir         string
		index       string
	)

	flag.BoolVar(&doDelete, "delete", false, "Delete files older than -days (unless still indexed)")
	flag.BoolVar(&doRemove, "remove", false, "Alias for -delete")
	flag.BoolVar(&report, "report", false, "Print an age histogram of cached files")
	flag.IntVar(&days, "days", 14, "Age threshold in days for deletion")
	flag.IntVar(&from, "from", 0, "Start the age report at this many days")
	flag.BoolVar(&accessDates, "access-dates", false, "Classify files by access time")
	flag.BoolVar(&modifyDates, "modify-dates", false, "Classify files by modify time (default)")
	flag.StringVar(&dir, "dir", "", "Cache directory (defaults to EQUATION_CACHE_DIR)")
	flag.StringVar(&index, "index", "", "Index file path (defaults to EQUATION_CACHE_INDEX)")
	flag.Parse()

	if accessDates && modifyDates {
		log.Fatal("-access-dates and -modify-dates are mutually exclusive")
	}

	cfg := config.Load()
	if dir == "" {
		dir = cfg.EquationCacheDir
	}
	if index == "" {
		index = cfg.EquationCacheIndex
	}
	if dir == "" {
		log.Fatal("cache directory is not set (use -dir or EQUATION_CACHE_DIR)")
	}

	if !doDelete && !doRemove && !report {
		fmt.Println("Nothing to do: pass -report, -delete or both")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	opts := eqcache.Options{
		Dir:           dir,
		IndexPath:     index,
		Days:          days,
		From:          from,
		UseAccessTime: accessDates,
		Delete:        doDelete || doRemove,
		Report:        report,
	}

	res, err := eqcache.Prune(opts, os.Stdout)
	if err != nil {
		log.Fatalf("Prune failed: %v", err)
	}

	if opts.Delete {
		fmt.Printf("Deleted %d file(s), kept %d indexed file(s), dropped %d index entries\n",
			res.Deleted, res.Retained, res.IndexDropped)
	}
}
