package model

type City struct {
	ID    string `gorm:"primaryKey;size:36" json:"id"`
	Name  string `gorm:"size:120;not null;uniqueIndex:uk_cities_name_state" json:"name"`
	State string `gorm:"size:120;not null;uniqueIndex:uk_cities_name_state" json:"state"`
}

func (City) TableName() string {
	return "cities"
}
