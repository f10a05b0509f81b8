package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mutelink/mutelink/internal/models"
)

// SnapshotToStruct encodes a snapshot using its JSON field names.
func SnapshotToStruct(snap models.Snapshot) (*structpb.Struct, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s, nil
}

// SnapshotFromStruct decodes a snapshot produced by SnapshotToStruct.
func SnapshotFromStruct(s *structpb.Struct) (models.Snapshot, error) {
	var snap models.Snapshot
	data, err := protojson.Marshal(s)
	if err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
