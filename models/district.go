package models

type District struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Districts lists the delivery districts accepted at checkout, in display order.
var Districts = []District{
	{"akkar", "Akkar - عكار"},
	{"aley", "Aley - عاليه"},
	{"baabda", "Baabda - بعبدا"},
	{"baalbek", "Baalbek - بعلبك"},
	{"batroun", "Batroun - البترون"},
	{"beirut", "Beirut - بيروت"},
	{"bint_jbeil", "Bint Jbeil - بنت جبيل"},
	{"bsharri", "Bsharri - بشري"},
	{"byblos", "Byblos - جبيل"},
	{"chouf", "Chouf - الشوف"},
	{"danniyeh", "Danniyeh - الضنية"},
	{"hasbaya", "Hasbaya - حاصبيا"},
	{"hermel", "Hermel - الهرمل"},
	{"jezzine", "Jezzine - جزين"},
	{"keserwan", "Keserwan - كسروان"},
	{"koura", "Koura - الكورة"},
	{"marjeyoun", "Marjeyoun - مرجعيون"},
	{"matn", "Matn - المتن"},
	{"nabatieh", "Nabatieh - النبطية"},
	{"rashaya", "Rashaya - راشيا"},
	{"sidon", "Sidon - صيدا"},
	{"tripoli", "Tripoli - طرابلس"},
	{"tyre", "Tyre - صور"},
	{"western_bekaa", "Western Bekaa - البقاع الغربي"},
	{"zahle", "Zahle - زحلة"},
	{"zgharta", "Zgharta - زغرتا"},
}

var districtLabels = func() map[string]string {
	m := make(map[string]string, len(Districts))
	for _, d := range Districts {
		m[d.Code] = d.Label
	}
	return m
}()

func IsValidDistrict(code string) bool {
	_, ok := districtLabels[code]
	return ok
}

// DistrictLabel returns the display label, or the code itself when unknown.
func DistrictLabel(code string) string {
	if label, ok := districtLabels[code]; ok {
		return label
	}
	return code
}
