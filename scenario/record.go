package scenario

import (
	"fmt"
	"io"
	"os"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
	"github.com/vmihailenco/msgpack/v5"
)

// Record is the offline-analysis dump of a round.
type Record struct {
	Scenario     *Snapshot                `json:"Scenario"`
	Bids         brokertypes.Bids         `json:"Bids"`
	AcceptedBids brokertypes.AcceptedBids `json:"Accepted_Bids"`
}

func NewRecord(snapshot *Snapshot, bids brokertypes.Bids, accepted brokertypes.AcceptedBids) Record {
	return Record{
		Scenario:     snapshot.normalized(),
		Bids:         bids,
		AcceptedBids: accepted,
	}
}

func WriteRecord(w io.Writer, record Record) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(record)
}

func ReadRecord(r io.Reader) (Record, error) {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")

	var record Record
	err := dec.Decode(&record)
	if err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}

	if record.Scenario != nil {
		s := record.Scenario
		accepted := s.AcceptedBids
		record.Scenario = NewSnapshot(s.Locations, s.Clusters, s.CDNs, s.Requests)
		record.Scenario.AcceptedBids = accepted
	}
	return record, nil
}

func StoreRecord(path string, record Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = WriteRecord(f, record)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
