package chip

import (
	"fmt"
	"strings"
)

// Type identifies a sound chip family as reported by the hardware driver.
// Values follow the numbering used by common sound chip interface drivers,
// so a driver can hand its raw type code over unchanged.
type Type int

const (
	None     Type = 0
	YM2608   Type = 1
	YM2151   Type = 2
	YM2610   Type = 3
	YM2203   Type = 4
	YM2612   Type = 5
	AY8910   Type = 6
	SN76489  Type = 7
	YM3812   Type = 8
	YMF262   Type = 9
	YM2413   Type = 10
	YM3526   Type = 11
	YMF288   Type = 12
	SCC      Type = 13
	SCCS     Type = 14
	Y8950    Type = 15
	YM2164   Type = 16
	YM2414   Type = 17
	AY8930   Type = 18
	YM2149   Type = 19
	YMZ294   Type = 20
	SN76496  Type = 21
	YM2420   Type = 22
	YMF281   Type = 23
	YMF276   Type = 24
	YM2610B  Type = 25
	YMF286   Type = 26
	YM2602   Type = 27
	UM3567   Type = 28
	YMF274   Type = 29
	YM3806   Type = 30
	YM2163   Type = 31
	YM7129   Type = 32
	YMZ280   Type = 33
	YMZ705   Type = 34
	YMZ735   Type = 35
	YM2423   Type = 36
	SPC700   Type = 37
	NBV4     Type = 38
	HuC6280  Type = 39
	C140     Type = 40
	OKIM6258 Type = 41
)

var names = map[Type]string{
	None:     "none",
	YM2608:   "YM2608",
	YM2151:   "YM2151",
	YM2610:   "YM2610",
	YM2203:   "YM2203",
	YM2612:   "YM2612",
	AY8910:   "AY-3-8910",
	SN76489:  "SN76489",
	YM3812:   "YM3812",
	YMF262:   "YMF262",
	YM2413:   "YM2413",
	YM3526:   "YM3526",
	YMF288:   "YMF288",
	SCC:      "SCC",
	SCCS:     "SCC+",
	Y8950:    "Y8950",
	YM2164:   "YM2164",
	YM2414:   "YM2414",
	AY8930:   "AY8930",
	YM2149:   "YM2149",
	YMZ294:   "YMZ294",
	SN76496:  "SN76496",
	YM2420:   "YM2420",
	YMF281:   "YMF281",
	YMF276:   "YMF276",
	YM2610B:  "YM2610B",
	YMF286:   "YMF286",
	YM2602:   "YM2602",
	UM3567:   "UM3567",
	YMF274:   "YMF274",
	YM3806:   "YM3806",
	YM2163:   "YM2163",
	YM7129:   "YM7129",
	YMZ280:   "YMZ280",
	YMZ705:   "YMZ705",
	YMZ735:   "YMZ735",
	YM2423:   "YM2423",
	SPC700:   "SPC700",
	NBV4:     "NBV4",
	HuC6280:  "HuC6280",
	C140:     "C140",
	OKIM6258: "OKIM6258",
}

func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("chip(%d)", int(t))
}

// Parse resolves a chip name (case-insensitive) or a numeric type code.
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for t, name := range names {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}

	var code int
	if _, err := fmt.Sscanf(s, "%d", &code); err == nil {
		return Type(code), nil
	}

	return None, fmt.Errorf("unknown chip type %q", s)
}
