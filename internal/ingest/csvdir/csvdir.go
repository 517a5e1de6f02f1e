// Package csvdir reads offer inventory from a directory of CSV drops,
// the interchange format most small suppliers still ship.
package csvdir

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tripsolver/internal/ingest"
	"tripsolver/internal/model"
)

// Source parses flights.csv, ground.csv, hotels.csv and cars.csv from
// Dir. Missing files are skipped; a malformed row aborts the batch with
// the file and line in the error.
type Source struct {
	Dir string
}

func New(dir string) Source { return Source{Dir: dir} }

func (s Source) Name() string { return "csv-dir" }

func (s Source) FetchOffers(ctx context.Context, cursor string) (ingest.OfferBatch, error) {
	// The whole directory is one batch.
	if cursor != "" {
		return ingest.OfferBatch{}, nil
	}
	var set model.OfferSet
	if err := readFile(s.Dir, "flights.csv", 8, func(rec []string, line int) error {
		dep, err1 := time.Parse(time.RFC3339, rec[4])
		arr, err2 := time.Parse(time.RFC3339, rec[5])
		price, err3 := strconv.ParseFloat(rec[6], 64)
		dur, err4 := strconv.Atoi(rec[7])
		if err := firstErr(err1, err2, err3, err4); err != nil {
			return err
		}
		set.Flights = append(set.Flights, model.FlightOffer{
			Airline: rec[0], FlightNumber: rec[1], Origin: rec[2], Destination: rec[3],
			DepartureTime: dep, ArrivalTime: arr, Price: price, DurationMin: dur,
		})
		return nil
	}); err != nil {
		return ingest.OfferBatch{}, err
	}
	if err := readFile(s.Dir, "ground.csv", 5, func(rec []string, line int) error {
		price, err1 := strconv.ParseFloat(rec[3], 64)
		dur, err2 := strconv.Atoi(rec[4])
		if err := firstErr(err1, err2); err != nil {
			return err
		}
		set.Ground = append(set.Ground, model.GroundOffer{
			Provider: rec[0], Origin: rec[1], Destination: rec[2], Price: price, DurationMin: dur,
		})
		return nil
	}); err != nil {
		return ingest.OfferBatch{}, err
	}
	if err := readFile(s.Dir, "hotels.csv", 3, func(rec []string, line int) error {
		price, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return err
		}
		set.Hotels = append(set.Hotels, model.HotelRate{City: rec[0], Name: rec[1], PricePerNight: price})
		return nil
	}); err != nil {
		return ingest.OfferBatch{}, err
	}
	if err := readFile(s.Dir, "cars.csv", 3, func(rec []string, line int) error {
		price, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return err
		}
		set.Cars = append(set.Cars, model.CarRate{City: rec[0], Company: rec[1], PricePerDay: price})
		return nil
	}); err != nil {
		return ingest.OfferBatch{}, err
	}
	return ingest.OfferBatch{Offers: set}, nil
}

func readFile(dir, name string, fields int, row func(rec []string, line int) error) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		line++
		if line == 1 && rec[len(rec)-1] != "" {
			// Header row detection: numeric tail columns never parse as
			// text labels, so try the row and fall through on line 1.
			if _, err := strconv.ParseFloat(rec[len(rec)-1], 64); err != nil {
				continue
			}
		}
		if err := row(rec, line); err != nil {
			return fmt.Errorf("%s line %d: %w", name, line, err)
		}
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
