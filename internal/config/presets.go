package config

import "sort"

// Presets are ready-made scenes in the default 24-unit tank.
var Presets = map[string]*Config{
	"drop":     withScene("drop", dropScene),
	"dam":      withScene("dam", damScene),
	"sphere":   withScene("sphere", sphereScene),
	"fountain": withScene("fountain", fountainScene),
}

func withScene(name string, scene func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	scene(cfg)
	return cfg
}

func dropScene(c *Config) {
	c.Fill = []BoxConfig{{Min: V(-4, 0, -4), Max: V(4, 8, 4)}}
	c.Run.Steps = 800
}

func damScene(c *Config) {
	c.Fill = []BoxConfig{{Min: V(-11.5, -11.5, -11.5), Max: V(-3, 3, 11.5)}}
	c.Run.Steps = 1500
}

func sphereScene(c *Config) {
	damScene(c)
	c.Bodies = []BodyConfig{
		{Shape: "sphere", Position: V(4, 0, 0), Radius: 3, Mass: 0.05},
		{Shape: "box", Position: V(6, -10, 6), HalfExtents: V(2, 2, 2)},
	}
	c.Contacts.ApplyReaction = true
}

func fountainScene(c *Config) {
	c.Emitters = []EmitterConfig{{
		Position:    V(-1, -10, 0),
		Speed:       1.5,
		Pitch:       0,
		YawSpread:   180,
		PitchSpread: 8,
		PerStep:     4,
	}}
	c.Absorbers = []BoxConfig{{Min: V(8, -12, -12), Max: V(12, -8, 12)}}
	c.Bodies = []BodyConfig{
		{Shape: "plane", Position: V(0, -10.5, 0), Normal: V(0.2, 1, 0)},
	}
	c.Fluid.MaxParticles = 2048
	c.Run.Steps = 2000
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
