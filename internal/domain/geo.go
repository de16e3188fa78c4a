package domain

type GeoPoint struct {
	Lat float64
	Lon float64
}

type Landmark struct {
	Name  string
	Point GeoPoint
}
