package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

var (
	firstNames      = []string{"Aarav", "Diya", "Kabir", "Meera", "Rohan", "Sara", "Vikram", "Anaya", "Ishaan", "Nisha"}
	lastNames       = []string{"Sharma", "Iyer", "Khan", "Patel", "Reddy", "Gupta", "Das", "Menon"}
	cities          = []string{"Pune", "Chennai", "Delhi", "Mumbai", "Kochi", "Jaipur"}
	genders         = []string{"M", "F", "male", "Female", "Other"}
	specializations = []string{"Cardiology", "Dermatology", "Neurology", "Orthopedics", "Pediatrics", "General Medicine"}
	statuses        = []string{"Completed", "completed", "Completed", "Scheduled", "Cancelled", "canceled"}
	medicines       = []string{"Paracetamol", "Amoxicillin", "Metformin", "Atorvastatin", "Ibuprofen", "Cetirizine"}
	paidStatuses    = []string{"Paid", "paid", "Paid", "Pending"}
	methods         = []string{"Cash", "Card", "UPI", "Insurance", "Online", "credit card"}
	dateLayouts     = []string{"2006-01-02", "01/02/2006", "2006/01/02"}
)

// dataset holds generated data rows per kind, in each kind's column order.
type dataset map[models.Kind][][]string

type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *generator) pick(xs []string) string {
	return xs[g.rng.IntN(len(xs))]
}

func (g *generator) date(from time.Time, days int) string {
	d := from.AddDate(0, 0, g.rng.IntN(days))
	return d.Format(g.pick(dateLayouts))
}

// generate builds a consistent clinic extract. With defects set it appends
// rows that validation must reject, one per kind of failure.
func (g *generator) generate(patients, doctors int, defects bool) dataset {
	ds := dataset{}
	itoa := strconv.Itoa

	for id := 1; id <= doctors; id++ {
		ds[models.KindDoctor] = append(ds[models.KindDoctor], []string{
			itoa(id), "Dr. " + g.pick(lastNames), specializations[(id-1)%len(specializations)], itoa(1 + g.rng.IntN(35)),
		})
	}

	for id := 1; id <= patients; id++ {
		ds[models.KindPatient] = append(ds[models.KindPatient], []string{
			itoa(id), g.pick(firstNames) + " " + g.pick(lastNames), g.pick(genders),
			g.date(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), 365*60),
			g.pick(cities), fmt.Sprintf("9%09d", g.rng.IntN(1e9)),
		})
	}

	apptID, rxID, billID := 1, 1, 1
	for pid := 1; pid <= patients; pid++ {
		for n := 1 + g.rng.IntN(3); n > 0; n-- {
			status := g.pick(statuses)
			ds[models.KindAppointment] = append(ds[models.KindAppointment], []string{
				itoa(apptID), itoa(pid), itoa(1 + g.rng.IntN(doctors)),
				g.date(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 180), status,
			})

			if status != string(models.StatusCancelled) && status != "canceled" {
				ds[models.KindBilling] = append(ds[models.KindBilling], []string{
					itoa(billID), itoa(pid), itoa(apptID),
					fmt.Sprintf("%d.%02d", 200+g.rng.IntN(4800), g.rng.IntN(100)),
					g.pick(paidStatuses), g.pick(methods),
				})
				billID++
			}
			if status == "Completed" || status == "completed" {
				duration := itoa(3 + g.rng.IntN(12))
				if g.rng.IntN(5) == 0 {
					duration = ""
				}
				ds[models.KindPrescription] = append(ds[models.KindPrescription], []string{
					itoa(rxID), itoa(apptID), g.pick(medicines), fmt.Sprintf("%dmg", 250*(1+g.rng.IntN(4))), duration,
				})
				rxID++
			}
			apptID++
		}
	}

	if defects {
		ds[models.KindPatient] = append(ds[models.KindPatient],
			[]string{"1", "Duplicate Person", "F", "1990-01-01", "Pune", "9000000000"},
			[]string{itoa(patients + 1), "", "M", "1985-05-05", "Delhi", "9111111111"},
			[]string{"", "", "", "", "", ""},
		)
		ds[models.KindAppointment] = append(ds[models.KindAppointment],
			[]string{itoa(apptID), "1", "9999", "2025-03-01", "Completed"},
		)
		ds[models.KindPrescription] = append(ds[models.KindPrescription],
			[]string{itoa(rxID), "abc", "Ibuprofen", "400mg", "5"},
		)
		ds[models.KindBilling] = append(ds[models.KindBilling],
			[]string{itoa(billID), "1", "1", "-150.00", "Paid", "Cash"},
			[]string{itoa(billID + 1), "1", "1", "300.00", "Paid", "Cheque"},
		)
	}
	return ds
}
