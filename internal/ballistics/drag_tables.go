package ballistics

// breakpoint is one segment of a piecewise power-law retardation fit.
// The segment applies to velocities strictly above the threshold.
type breakpoint struct {
	above float64 // ft/s
	a     float64
	m     float64
}

// Tables are ordered by descending threshold. The last entry of every table
// has a threshold of 0, so any velocity in (0, maxDragVelocity) matches.

var g1Table = []breakpoint{
	{4230, 1.477404177730177e-04, 1.9565},
	{3680, 1.920339268755614e-04, 1.925},
	{3450, 2.894751026819746e-04, 1.875},
	{3295, 4.349905111115636e-04, 1.825},
	{3130, 6.520421871892662e-04, 1.775},
	{2960, 9.748073694078696e-04, 1.725},
	{2830, 1.453721560187286e-03, 1.675},
	{2680, 2.162887202930376e-03, 1.625},
	{2460, 3.209559783129881e-03, 1.575},
	{2225, 3.904368218691249e-03, 1.55},
	{2015, 3.222942271262336e-03, 1.575},
	{1890, 2.203329542297809e-03, 1.625},
	{1810, 1.511001028891904e-03, 1.675},
	{1730, 8.609957592468259e-04, 1.75},
	{1595, 4.086146797305117e-04, 1.85},
	{1520, 1.954473210037398e-04, 1.95},
	{1420, 5.431896266462351e-05, 2.125},
	{1360, 8.847742581674416e-06, 2.375},
	{1315, 1.456922328720298e-06, 2.625},
	{1280, 2.419485191895565e-07, 2.875},
	{1220, 1.657956321067612e-08, 3.25},
	{1185, 4.745469537157371e-10, 3.75},
	{1150, 1.379746590025088e-11, 4.25},
	{1100, 4.070157961147882e-13, 4.75},
	{1060, 2.938236954847331e-14, 5.125},
	{1025, 1.228597370774746e-14, 5.25},
	{980, 2.916938264100495e-14, 5.125},
	{945, 3.855099424807451e-13, 4.75},
	{905, 1.185097045689854e-11, 4.25},
	{860, 3.566129470974951e-10, 3.75},
	{810, 1.045513263966272e-08, 3.25},
	{780, 1.291159200846216e-07, 2.875},
	{750, 6.824429329105383e-07, 2.625},
	{700, 3.569169672385163e-06, 2.375},
	{640, 1.839015095899579e-05, 2.125},
	{600, 5.71117468873424e-05, 1.950},
	{550, 9.226557091973427e-05, 1.875},
	{250, 9.337991957131389e-05, 1.875},
	{100, 7.225247327590413e-05, 1.925},
	{65, 5.792684957074546e-05, 1.975},
	{0, 5.206214107320588e-05, 2.000},
}

var g2Table = []breakpoint{
	{1674, .0079470052136733, 1.36999902851493},
	{1172, 1.00419763721974e-03, 1.65392237010294},
	{1060, 7.15571228255369e-23, 7.91913562392361},
	{949, 1.39589807205091e-10, 3.81439537623717},
	{670, 2.34364342818625e-04, 1.71869536324748},
	{335, 1.77962438921838e-04, 1.76877550388679},
	{0, 5.18033561289704e-05, 1.98160270524632},
}

var g5Table = []breakpoint{
	{1730, 7.24854775171929e-03, 1.41538574492812},
	{1228, 3.50563361516117e-05, 2.13077307854948},
	{1116, 1.84029481181151e-13, 4.81927320350395},
	{1004, 1.34713064017409e-22, 7.8100555281422},
	{837, 1.03965974081168e-07, 2.84204791809926},
	{335, 1.09301593869823e-04, 1.81096361579504},
	{0, 3.51963178524273e-05, 2.00477856801111},
}

var g6Table = []breakpoint{
	{3236, 0.0455384883480781, 1.15997674041274},
	{2065, 7.167261849653769e-02, 1.10704436538885},
	{1311, 1.66676386084348e-03, 1.60085100195952},
	{1144, 1.01482730119215e-07, 2.9569674731838},
	{1004, 4.31542773103552e-18, 6.34106317069757},
	{670, 2.04835650496866e-05, 2.11688446325998},
	{0, 7.50912466084823e-05, 1.92031057847052},
}

var g7Table = []breakpoint{
	{4200, 1.29081656775919e-09, 3.24121295355962},
	{3000, 0.0171422231434847, 1.27907168025204},
	{1470, 2.33355948302505e-03, 1.52693913274526},
	{1260, 7.97592111627665e-04, 1.67688974440324},
	{1110, 5.71086414289273e-12, 4.3212826264889},
	{960, 3.02865108244904e-17, 5.99074203776707},
	{670, 7.52285155782535e-06, 2.1738019851075},
	{540, 1.31766281225189e-05, 2.08774690257991},
	{0, 1.34504843776525e-05, 2.08702306738884},
}

var g8Table = []breakpoint{
	{3571, .0112263766252305, 1.33207346655961},
	{1841, .0167252613732636, 1.28662041261785},
	{1120, 2.20172456619625e-03, 1.55636358091189},
	{1088, 2.0538037167098e-16, 5.80410776994789},
	{976, 5.92182174254121e-12, 4.29275576134191},
	{0, 4.3917343795117e-05, 1.99978116283334},
}

// dragTables has no entry for G3 or G4.
var dragTables = map[DragFunction][]breakpoint{
	G1: g1Table,
	G2: g2Table,
	G5: g5Table,
	G6: g6Table,
	G7: g7Table,
	G8: g8Table,
}
