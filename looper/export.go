package looper

import (
	"strconv"

	"github.com/tidwall/sjson"
)

// ExportJSON renders a UIState as a JSON snapshot, built incrementally
// with sjson rather than a struct tag marshal so the exported shape can
// diverge from the in-memory layout (e.g. omitting EpochSet/DurationSet
// in favor of a null epoch/duration) without a second mirror type.
func ExportJSON(state UIState) (string, error) {
	doc := "{}"
	var err error

	if state.EpochSet {
		doc, err = sjson.Set(doc, "epoch", state.Epoch.UnixMilli())
	} else {
		doc, err = sjson.SetRaw(doc, "epoch", "null")
	}
	if err != nil {
		return "", err
	}

	if state.DurationSet {
		doc, err = sjson.Set(doc, "durationMs", state.Duration.Milliseconds())
	} else {
		doc, err = sjson.SetRaw(doc, "durationMs", "null")
	}
	if err != nil {
		return "", err
	}

	for i, b := range state.Bloops {
		prefix := "bloops." + strconv.Itoa(i) + "."
		if doc, err = sjson.Set(doc, prefix+"listening", b.Listening); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+"waitingToRecord", b.WaitingToRecord); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+"recording", b.Recording); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+"playingBack", b.PlayingBack); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+"playbackActive", b.PlaybackActive); err != nil {
			return "", err
		}
	}

	return doc, nil
}
