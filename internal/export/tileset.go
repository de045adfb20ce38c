package export

type Asset struct {
	Version string `json:"version"`
}

type Content struct {
	Url string `json:"uri"`
}

type BoundingVolume struct {
	Box []float64 `json:"box"`
}

type Child struct {
	Content        Content        `json:"content"`
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine"`
}

type Root struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine"`
	Children       []Child        `json:"children"`
}

type Tileset struct {
	Asset          Asset   `json:"asset"`
	GeometricError float64 `json:"geometricError"`
	Root           Root    `json:"root"`
}
