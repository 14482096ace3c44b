package analysis

import "strings"

// ProfileVersion names the built-in keyword tables.
const ProfileVersion = "v1"

// Category is a labelled trigger set; Categories are scanned in slice order.
type Category struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// ScoreGroup adds Weight once when any of its keywords occurs.
type ScoreGroup struct {
	Name     string   `yaml:"name"`
	Weight   float64  `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

// Profile is a versioned set of keyword tables driving every heuristic.
type Profile struct {
	Version    string       `yaml:"version"`
	Topic      []string     `yaml:"topic"`
	Categories []Category   `yaml:"categories"`
	Default    Category     `yaml:"default"`
	Groups     []ScoreGroup `yaml:"groups"`
	Critical   []string     `yaml:"critical"`
	MaxScore   float64      `yaml:"maxScore"`
}

// DefaultProfile returns the v1 tables.
func DefaultProfile() Profile {
	return Profile{
		Version: ProfileVersion,
		Topic: []string{
			"Россия", "Russia", "российск", "russo", "russe", "rusia", "russland",
			"Москва", "Putin", "Кремль", "Путин", "МИД", "ФСБ", "СВО", "Украина",
		},
		Categories: []Category{
			{Key: "economy", Label: "Экономика и финансы", Keywords: []string{
				"санкц", "экономик", "финанс", "рубль", "тариф", "инвестиц", "нефть", "газ", "цен", "торговл",
			}},
			{Key: "security", Label: "Безопасность и оборона", Keywords: []string{
				"войн", "безопасн", "армия", "воен", "сил", "террор", "разведк", "пограничн",
			}},
			{Key: "geopolitics", Label: "Геополитика и международные отношения", Keywords: []string{
				"диплом", "союз", "встреч", "переговор", "соглаш", "митинг", "договор", "международн",
			}},
			{Key: "energy", Label: "Энергетика и ресурсы", Keywords: []string{
				"энерг", "нефть", "газ", "электро", "энергетик", "трубопровод", "ресурс",
			}},
			{Key: "technology", Label: "Технологии и инновации", Keywords: []string{
				"технолог", "искусствен", "нейросеть", "спутник", "квантов", "био", "инновац",
			}},
			{Key: "social", Label: "Социальные и гуманитарные вопросы", Keywords: []string{
				"мигрант", "социал", "жизн", "пенси", "образов", "здравоохран", "населен",
			}},
		},
		Default: Category{Key: "other", Label: "Прочее"},
		Groups: []ScoreGroup{
			{Name: "home", Weight: 6, Keywords: nil}, // filled from Topic by Normalize
			{Name: "regional", Weight: 2, Keywords: []string{
				"китай", "china", "казахстан", "узбекистан", "беларусь", "евразия", "снг", "евразес",
			}},
			{Name: "world", Weight: 1, Keywords: []string{
				"сша", "америка", "европа", "евросоюз", "ната", "британия", "франция", "германия",
			}},
			{Name: "sanctions", Weight: 1.5, Keywords: []string{
				"санкции", "ввод", "ограничение", "запрет", "экспорт", "импорт", "цена", "валюта", "дефолт",
			}},
			{Name: "conflict", Weight: 2, Keywords: []string{
				"война", "вмешательство", "армия", "ракета", "оружие", "ядерный",
			}},
			{Name: "diplomacy", Weight: 1.5, Keywords: []string{
				"договор", "соглашение", "переговоры", "союз", "признание",
			}},
		},
		Critical: []string{
			"санкции", "ввод", "отмена", "ограничение", "запрет", "экспорт", "импорт",
			"поставки", "цена", "валюта", "дефолт", "банковская система", "финансовая стабильность",
			"военное вмешательство", "мобилизация", "территория", "оккупация", "договор", "союз",
			"влияние", "стратегия", "соперничество", "блок", "союзник", "изоляция", "признание",
			"независимость", "государственный переворот", "выборы", "президент", "министр", "глава",
			"силы", "армия", "ракета", "оружие", "ядерный", "проверка", "инспекция",
		},
		MaxScore: 10,
	}
}

// Normalize lower-cases every keyword, drops blanks and fills gaps from the defaults.
func (p Profile) Normalize() Profile {
	def := DefaultProfile()
	out := Profile{
		Version:  p.Version,
		Topic:    lowerAll(p.Topic),
		Default:  p.Default,
		Critical: lowerAll(p.Critical),
		MaxScore: p.MaxScore,
	}
	if out.Version == "" {
		out.Version = def.Version
	}
	if len(out.Topic) == 0 {
		out.Topic = lowerAll(def.Topic)
	}
	if out.Default.Label == "" {
		out.Default = def.Default
	}
	if len(out.Critical) == 0 && p.Critical == nil {
		out.Critical = lowerAll(def.Critical)
	}
	if out.MaxScore <= 0 {
		out.MaxScore = def.MaxScore
	}

	categories := p.Categories
	if len(categories) == 0 {
		categories = def.Categories
	}
	for _, c := range categories {
		c.Keywords = lowerAll(c.Keywords)
		out.Categories = append(out.Categories, c)
	}

	groups := p.Groups
	if len(groups) == 0 {
		groups = def.Groups
	}
	for _, g := range groups {
		g.Keywords = lowerAll(g.Keywords)
		if g.Name == "home" && len(g.Keywords) == 0 {
			g.Keywords = out.Topic
		}
		out.Groups = append(out.Groups, g)
	}

	return out
}

// Labels returns category labels in table order followed by the default label.
func (p Profile) Labels() []string {
	labels := make([]string, 0, len(p.Categories)+1)
	for _, c := range p.Categories {
		labels = append(labels, c.Label)
	}
	return append(labels, p.Default.Label)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
