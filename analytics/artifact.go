package analytics

import "encoding/json"

// Artifact schema tags. Loads check the tag before decoding the payload
// so an incompatible artifact fails fast with ArtifactError instead of
// silently corrupting predictions.
const (
	ArtifactSchemaVersion = 1
	ArtifactKindAnomaly   = "anomaly-detector"
	ArtifactKindRouting   = "task-router"
)

// artifactEnvelope is the on-disk shape of a serialized model bundle.
type artifactEnvelope struct {
	Schema  int             `json:"schema"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalAnomalyModel serializes the model and its scaler as one
// versioned artifact.
func MarshalAnomalyModel(model *AnomalyModel) ([]byte, error) {
	return marshalArtifact(ArtifactKindAnomaly, model)
}

// UnmarshalAnomalyModel decodes a versioned anomaly-model artifact.
func UnmarshalAnomalyModel(data []byte) (*AnomalyModel, error) {
	var model AnomalyModel
	if err := unmarshalArtifact(data, ArtifactKindAnomaly, &model); err != nil {
		return nil, err
	}
	if model.Forest == nil || model.Scaler == nil {
		return nil, &ArtifactError{Reason: "anomaly artifact payload is missing forest or scaler"}
	}
	return &model, nil
}

// MarshalRoutingModel serializes the classifier, encoders, scaler and
// feature order as one versioned artifact.
func MarshalRoutingModel(model *RoutingModel) ([]byte, error) {
	return marshalArtifact(ArtifactKindRouting, model)
}

// UnmarshalRoutingModel decodes a versioned routing-model artifact.
func UnmarshalRoutingModel(data []byte) (*RoutingModel, error) {
	var model RoutingModel
	if err := unmarshalArtifact(data, ArtifactKindRouting, &model); err != nil {
		return nil, err
	}
	if model.Forest == nil || model.Scaler == nil || model.WorkerEnc == nil {
		return nil, &ArtifactError{Reason: "routing artifact payload is missing classifier, scaler or encoders"}
	}
	return &model, nil
}

func marshalArtifact(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &ArtifactError{Reason: "encoding model payload", Err: err}
	}
	return json.Marshal(artifactEnvelope{
		Schema:  ArtifactSchemaVersion,
		Kind:    kind,
		Payload: raw,
	})
}

func unmarshalArtifact(data []byte, wantKind string, out any) error {
	var env artifactEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &ArtifactError{Reason: "unreadable artifact", Err: err}
	}
	if env.Schema != ArtifactSchemaVersion {
		return &ArtifactError{Reason: "unsupported artifact schema version"}
	}
	if env.Kind != wantKind {
		return &ArtifactError{Reason: "artifact kind mismatch: got " + env.Kind + ", want " + wantKind}
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return &ArtifactError{Reason: "decoding artifact payload", Err: err}
	}
	return nil
}
