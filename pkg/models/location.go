package models

type Location struct {
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"lng" validate:"gte=-180,lte=180"`
	Address string  `json:"address" validate:"required,max=500"`
}

func (l *Location) IsZero() bool {
	return l == nil || (l.Lat == 0 && l.Lng == 0 && l.Address == "")
}
